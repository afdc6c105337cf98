// Package payload generates signed on-chain transaction payloads for the
// node's ten chain actions (component I): token approvals/transfers, node
// announcement, channel funding/closure, ticket redemption, and Safe
// (de)registration. Two implementations share one interface — Basic calls
// the target contracts directly, Safe wraps the announcement, channel and
// redemption calls through the node's Safe module (token approvals/transfers
// and Safe (de)registration still go to their contracts directly) —
// mirroring the teacher's pattern of a thin capability
// interface with swappable backends (e.g. htlcswitch's ChannelLink vs. a
// mock link).
package payload

import (
	"math/big"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/ticket"
)

// Currency distinguishes the chain's native asset from the wrapped HOPR
// token, since transfer targets and encodings differ between the two.
type Currency int

const (
	CurrencyNative Currency = iota
	CurrencyWHOPR
)

// KeyBinding carries the signature that binds a node's off-chain packet
// key to its on-chain address, included in an announcement only the first
// time a node announces.
type KeyBinding struct {
	PacketKey address.PacketKey
	Signature [64]byte
}

// AnnouncementData is what announce() publishes: the node's multiaddress,
// plus an optional key binding for a first-time announcement.
type AnnouncementData struct {
	Multiaddress string
	KeyBinding   *KeyBinding
}

// RedeemableTicket is a resolved winning ticket plus the VRF witness
// needed to prove it on-chain.
type RedeemableTicket struct {
	Ticket  ticket.Ticket
	Witness ticket.VRFWitness

	// Response is the combined half-key (the proof-of-relay secret),
	// embedded in the redemption call as porSecret.
	Response [32]byte
}

// TxRequest is an unsigned transaction ready for EIP-1559 signing: the
// generator fills in To/Value/Data/GasLimit, the caller supplies the
// fields that depend on current chain state (Nonce, ChainID, fee caps).
type TxRequest struct {
	To       address.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64

	Nonce                uint64
	ChainID              *big.Int
	GasTipCap, GasFeeCap *big.Int
}

// Generator is the common interface both payload-generation modes
// implement. Every method returns an unsigned TxRequest; signing and
// EIP-2718 encoding is a separate step (see Sign).
type Generator interface {
	Approve(spender address.Address, amount *big.Int) (TxRequest, error)
	Transfer(destination address.Address, amount *big.Int, currency Currency) (TxRequest, error)
	Announce(a AnnouncementData) (TxRequest, error)
	FundChannel(dest address.Address, amount *big.Int) (TxRequest, error)
	CloseIncomingChannel(source address.Address) (TxRequest, error)
	InitiateOutgoingChannelClosure(destination address.Address) (TxRequest, error)
	FinalizeOutgoingChannelClosure(destination address.Address) (TxRequest, error)
	RedeemTicket(rt RedeemableTicket) (TxRequest, error)
	RegisterSafeByNode(safeAddr address.Address) (TxRequest, error)
	DeregisterNodeBySafe() (TxRequest, error)
}

// defaultTxGas matches the flat gas limit the teacher's contract-call
// transactions use; none of these calls does enough work to need
// per-action tuning.
const defaultTxGas = 400_000
