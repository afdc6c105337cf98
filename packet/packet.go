package packet

import (
	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/ticket"
)

// Tag is the replay-protection tag embedded in every onion packet,
// opaque to this package beyond equality.
type Tag [16]byte

// Ack is a single acknowledgement: the challenge it resolves plus the
// half-key share that, combined with the relayer's own, determines whether
// a relayed ticket wins. A nil-equivalent HalfKey (the zero value) marks a
// "random ack", used when the packet could not be processed and a
// privacy-preserving reply is still required.
type Ack struct {
	Challenge ticket.Challenge
	HalfKey   ticket.HalfKey
}

// OutgoingPacket is the wire-ready result of encoding, destined for a
// single next hop.
type OutgoingPacket struct {
	NextHop      address.Address
	AckChallenge ticket.Challenge
	Data         []byte
}

// IncomingPacket is the tagged union produced by decoding an inbound
// datagram.
type IncomingPacket interface {
	isIncomingPacket()
}

// Final means this node is the packet's ultimate destination.
type Final struct {
	PacketTag    Tag
	PreviousHop  address.Address
	Sender       address.Pseudonym
	PlainText    []byte
	AckKey       ticket.HalfKey
	AckChallenge ticket.Challenge
	Signals      Signals
	NumSurbs     int
}

func (Final) isIncomingPacket() {}

// Forwarded means this node must relay the packet on to NextHop after
// validating and replacing its ticket.
type Forwarded struct {
	PacketTag      Tag
	PreviousHop    address.Address
	NextHop        address.Address
	Data           []byte
	AckKeyPrevHop  ticket.HalfKey
	AckChallenge   ticket.Challenge
	ReceivedTicket ticket.Ticket

	// PathPos is this hop's 1-indexed position counting down from the
	// final destination, as revealed by peeling the onion header's
	// routing layer. A value of 1 means the next hop is the final
	// destination.
	PathPos int
}

func (Forwarded) isIncomingPacket() {}

// Acknowledgement means the datagram carried a batch of acks destined for
// this node rather than application or forwarded data.
type Acknowledgement struct {
	PacketTag    Tag
	PreviousHop  address.Address
	ReceivedAcks []Ack
}

func (Acknowledgement) isIncomingPacket() {}
