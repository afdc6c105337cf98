package packet

import (
	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/surb"
)

// MaxAcknowledgementsBatchSize bounds how many acks a single encoded
// acknowledgement packet may carry.
const MaxAcknowledgementsBatchSize = 64

// PacketEncoder turns an outgoing payload plus routing decision into a
// wire-ready packet. The onion cryptography itself — key derivation,
// layered encryption, ticket embedding format — is an external
// collaborator; this interface only fixes the call shape.
type PacketEncoder interface {
	// EncodePacket builds a forward, SURB-reply, or 0-hop packet. For
	// forward routing it additionally returns the SURB openers to be
	// stored for future replies, one per return path requested.
	EncodePacket(payload []byte, routing DestinationRouting, signals Signals) (
		OutgoingPacket, []surb.Opener, error)

	// EncodeAcknowledgements packs up to MaxAcknowledgementsBatchSize
	// acks destined for the same peer into a single outgoing packet. A
	// zero-value HalfKey in any Ack signals "sign a random ack" — used
	// as a privacy-preserving reply when the original packet could not
	// be processed.
	EncodeAcknowledgements(acks []Ack, destination address.Address) (OutgoingPacket, error)
}

// PacketDecoder turns a received datagram into a classified
// IncomingPacket, or one of the three decode-failure error shapes defined
// in errors.go.
type PacketDecoder interface {
	Decode(peer address.Address, data []byte) (IncomingPacket, error)
}
