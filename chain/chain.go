// Package chain declares the external-collaborator surface the packet and
// ticket layers depend on: the channel graph, chain-wide parameters, and
// the signing key used for ticket and transaction payloads. Nothing in
// this package touches the network; it is the narrow interface an
// on-chain indexer and wallet implement against.
package chain

import (
	"math/big"

	"github.com/hoprnet/hopr-relay-core/address"
)

// Status is a payment channel's lifecycle state.
type Status int

const (
	Closed Status = iota
	Open
	PendingToClose
)

func (s Status) String() string {
	switch s {
	case Open:
		return "open"
	case PendingToClose:
		return "pending-to-close"
	default:
		return "closed"
	}
}

// ID identifies a payment channel; derived off-chain from the ordered pair
// of endpoint addresses and their epoch, but treated opaquely here.
type ID [32]byte

// Channel is a point-in-time view of one payment channel.
type Channel struct {
	ID          ID
	Source      address.Address
	Destination address.Address
	Balance     *big.Int
	Epoch       uint32
	Status      Status
	ClosureTime int64 // unix seconds; meaningful only in PendingToClose
}

// ValidForTicket reports whether a ticket may be validated against this
// channel: it must still be open or pending closure, and issued under the
// channel's current epoch.
func (c Channel) ValidForTicket(epoch uint32) bool {
	if c.Status != Open && c.Status != PendingToClose {
		return false
	}
	return c.Epoch == epoch
}

// Config carries the chain-wide constants the RPC client and payload
// generator must agree on.
type Config struct {
	ChainID         *big.Int
	DomainSeparator [32]byte
	TokenAddress    address.Address
	ChannelsAddress address.Address
	SafeAddress     address.Address

	// AnnouncementsAddress and NodeSafeRegistryAddress are the remaining
	// contracts the payload generator targets directly.
	AnnouncementsAddress    address.Address
	NodeSafeRegistryAddress address.Address

	// ModuleAddress is the node's Safe module contract, the target of
	// every Safe-mode transaction. Unused in Basic mode.
	ModuleAddress address.Address
}

// Values is the read-only view onto chain state the ticket processor
// consults: channel lookups, minimum pricing, and domain separation. A
// concrete implementation is backed by an on-chain indexer's local
// snapshot; callers see a consistent view per call, never a stale mix
// across calls within one validation.
type Values interface {
	// Channel looks up the channel from src to dst, if any.
	Channel(src, dst address.Address) (Channel, bool)

	// ChannelByID looks up a channel by its derived id.
	ChannelByID(id ID) (Channel, bool)

	// MinTicketPrice is the network-wide minimum price per relayed hop.
	MinTicketPrice() *big.Int

	// MinWinProb is the network-wide minimum winning probability.
	MinWinProb() float64

	// DomainSeparator is the per-chain constant mixed into ticket and
	// VRF signatures to prevent cross-chain replay.
	DomainSeparator() [32]byte

	// NextOutgoingIndex allocates the next strictly monotone ticket
	// index for the given channel, serializing around the channel id
	// so indices are gapless even under concurrent mint attempts.
	NextOutgoingIndex(id ID) (uint64, error)

	// UnrealizedValue sums the amount of all still-unredeemed tickets
	// issued on the given channel under its current epoch.
	UnrealizedValue(id ID) (*big.Int, error)
}
