package packet

import (
	"fmt"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/ticket"
)

// ErrUndecodable means the datagram could not be parsed as a valid onion
// packet at all; the sender is not identifiable, so the caller must drop
// it silently as a defence against adversarial feeding rather than reply.
type ErrUndecodable struct {
	Cause error
}

func (e *ErrUndecodable) Error() string {
	return fmt.Sprintf("packet: undecodable: %v", e.Cause)
}

func (e *ErrUndecodable) Unwrap() error { return e.Cause }

// ErrProcessingError means decoding succeeded far enough to identify the
// sender and the packet's acknowledgement challenge but failed afterward;
// the caller replies with a random ack rather than dropping silently.
type ErrProcessingError struct {
	Sender    address.Address
	Challenge ticket.Challenge
	Cause     error
}

func (e *ErrProcessingError) Error() string {
	return fmt.Sprintf("packet: processing error from %s: %v", e.Sender, e.Cause)
}

func (e *ErrProcessingError) Unwrap() error { return e.Cause }

// ErrInvalidTicket means the packet decoded cleanly but its ticket was
// rejected by the ticket processor; the caller records the rejection and
// replies with a random ack.
type ErrInvalidTicket struct {
	Sender    address.Address
	Challenge ticket.Challenge
	Rejected  ticket.Ticket
	Issuer    address.Address
	Cause     error
}

func (e *ErrInvalidTicket) Error() string {
	return fmt.Sprintf("packet: invalid ticket from %s (issuer %s): %v",
		e.Sender, e.Issuer, e.Cause)
}

func (e *ErrInvalidTicket) Unwrap() error { return e.Cause }
