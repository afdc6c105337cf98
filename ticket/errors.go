package ticket

import (
	"fmt"

	"github.com/hoprnet/hopr-relay-core/address"
)

// ErrChannelNotFound means the channel a ticket or mint operation refers to
// does not exist in the local chain view.
type ErrChannelNotFound struct {
	Source, Destination address.Address
}

func (e *ErrChannelNotFound) Error() string {
	return fmt.Sprintf("ticket: no channel %s -> %s", e.Source, e.Destination)
}

// ErrInvalidState means a ticket's channel_id does not match the channel
// it was supposed to be validated against.
type ErrInvalidState struct {
	Msg string
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("ticket: invalid state: %s", e.Msg)
}

// ErrTicketValidation carries the rejected ticket and the reason it failed
// validation, so the caller can persist it as rejected and reply with a
// random acknowledgement.
type ErrTicketValidation struct {
	Ticket Ticket
	Reason string
}

func (e *ErrTicketValidation) Error() string {
	return fmt.Sprintf("ticket: validation failed for channel %x: %s",
		e.Ticket.ChannelID, e.Reason)
}

// ErrOutOfFunds means minting a replacement ticket would require more
// balance than the outgoing channel currently holds.
type ErrOutOfFunds struct {
	Destination address.Address
	Needed      string
}

func (e *ErrOutOfFunds) Error() string {
	return fmt.Sprintf("ticket: out of funds towards %s: needs %s",
		e.Destination, e.Needed)
}

// ErrUnacknowledgedTicketNotFound means an incoming acknowledgement's
// challenge does not match any pending entry. This is benign for 0-hop
// traffic — callers log it at trace level rather than treating it as an
// error condition.
type ErrUnacknowledgedTicketNotFound struct {
	Challenge Challenge
}

func (e *ErrUnacknowledgedTicketNotFound) Error() string {
	return fmt.Sprintf("ticket: no pending entry for challenge %s", e.Challenge)
}
