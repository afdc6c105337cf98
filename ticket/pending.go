package ticket

import (
	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
)

// PendingAcknowledgement is the tagged union stored in the unacknowledged-
// ticket table under a ticket's acknowledgement challenge: either we
// originated the packet ourselves, or we relayed it and are holding a
// validated ticket awaiting the complementary half-key.
type PendingAcknowledgement interface {
	isPendingAcknowledgement()
}

// WaitingAsSender means we originated the packet; the eventual incoming
// acknowledgement only confirms the first hop processed it.
type WaitingAsSender struct{}

func (WaitingAsSender) isPendingAcknowledgement() {}

// WaitingAsRelayer means we relayed the packet and are holding the
// validated ticket, our own half-key, and enough context to resolve a win
// or loss once the complementary half-key arrives.
type WaitingAsRelayer struct {
	Ticket  Ticket
	HalfKey HalfKey
	Issuer  address.Address
}

func (WaitingAsRelayer) isPendingAcknowledgement() {}

// ResolvedAcknowledgement is the tagged union produced by resolving an
// incoming acknowledgement against the unacknowledged-ticket table.
type ResolvedAcknowledgement interface {
	isResolvedAcknowledgement()
}

// Sending means the pending entry was WaitingAsSender: our own packet was
// confirmed delivered.
type Sending struct {
	Challenge Challenge
}

func (Sending) isResolvedAcknowledgement() {}

// RelayingWin means the combined ticket won under the VRF predicate and is
// now redeemable.
type RelayingWin struct {
	Ticket Ticket

	// Response is the combined half-key (our own XOR the counterpart's),
	// the proof-of-relay secret a redemption payload embeds on-chain.
	Response [32]byte
}

func (RelayingWin) isResolvedAcknowledgement() {}

// RelayingLoss means the combined ticket did not win; it is dropped.
type RelayingLoss struct {
	ChannelID chain.ID
}

func (RelayingLoss) isResolvedAcknowledgement() {}
