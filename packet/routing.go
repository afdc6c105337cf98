// Package packet declares the onion packet codec boundary (component C):
// an abstract PacketEncoder/PacketDecoder interface pair, the routing and
// decoded-packet sum types that cross it, and the error classification a
// decode attempt can produce. The onion cryptography itself is an external
// collaborator — this package only fixes the shapes that flow across it.
package packet

import (
	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/surb"
)

// DestinationRouting selects how an outgoing packet is addressed.
type DestinationRouting interface {
	isDestinationRouting()
}

// ForwardPath sends the packet along an explicit chain of relay hops,
// optionally attaching return paths the destination can use to build
// SURBs for replies.
type ForwardPath struct {
	Path        []address.Address
	ReturnPaths [][]address.Address
}

func (ForwardPath) isDestinationRouting() {}

// Surb sends the packet using a previously stored single-use reply block,
// rather than building a fresh onion header.
type Surb struct {
	ID   address.SurbID
	SURB surb.SURB
}

func (Surb) isDestinationRouting() {}

// NoAck sends the packet directly to destination with no return routing
// and no acknowledgement expected (used for 0-hop traffic such as probes).
type NoAck struct {
	Destination address.Address
}

func (NoAck) isDestinationRouting() {}

// Signals are small out-of-band flags carried alongside a packet's
// payload (e.g. protocol version, an application tag selecting which
// session a payload belongs to), keyed by TLV type and opaque to this
// package beyond their count. See signals.go for the wire encoding.
type Signals map[uint64][]byte
