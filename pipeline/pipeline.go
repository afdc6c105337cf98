// Package pipeline wires the packet codec (component C), the unacknowledged
// ticket table (D), and the ticket processor (E) into five long-running
// tasks: MsgOut, MsgIn, AckOut, AckIn, and an optional Mixer. Every queue
// between tasks is bounded, and every cross-task send is bounded by
// QueueSendTimeout so a stalled consumer can never deadlock a producer.
package pipeline

import (
	"context"
	"time"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/fn"
	"github.com/hoprnet/hopr-relay-core/packet"
	"github.com/hoprnet/hopr-relay-core/ticket"
)

// Config bounds the pipeline's queues and task timeouts.
type Config struct {
	// QueueCapacity bounds every inter-task channel.
	QueueCapacity int

	// QueueSendTimeout bounds every cross-task send; a send that can't
	// complete in time drops the item and logs rather than blocking the
	// producer indefinitely.
	QueueSendTimeout time.Duration

	// PacketDecodingTimeout bounds a single call to the decoder.
	PacketDecodingTimeout time.Duration

	// AckBufferInterval is how long AckOut accumulates acks for a
	// destination before flushing a batch.
	AckBufferInterval time.Duration

	// MaxAckBatchSize chunks AckOut's flushed batches.
	MaxAckBatchSize int
}

func (c *Config) setDefaults() {
	if c.QueueCapacity == 0 {
		c.QueueCapacity = 256
	}
	if c.QueueSendTimeout == 0 {
		c.QueueSendTimeout = 50 * time.Millisecond
	}
	if c.PacketDecodingTimeout == 0 {
		c.PacketDecodingTimeout = 150 * time.Millisecond
	}
	if c.AckBufferInterval == 0 {
		c.AckBufferInterval = 200 * time.Millisecond
	}
	if c.MaxAckBatchSize == 0 {
		c.MaxAckBatchSize = packet.MaxAcknowledgementsBatchSize
	}
}

// OutboundRequest is what the upper layer submits to MsgOut: application
// payload plus the routing decision that determines how it's packetized.
type OutboundRequest struct {
	Routing packet.DestinationRouting
	Payload []byte
	Signals packet.Signals

	// ReplyPseudonym, if non-zero, is the pseudonym under which any
	// SURB openers returned by encoding should be stored for later use
	// in replying to this conversation.
	ReplyPseudonym address.Pseudonym
}

// WireDatagram is an encoded packet ready to hand to the underlying
// transport, or a datagram just received from it.
type WireDatagram struct {
	Peer address.Address
	Data []byte
}

// Delivery is application payload surfaced to the upper layer after a
// Final packet is decoded.
type Delivery struct {
	Sender   address.Pseudonym
	Payload  []byte
	Signals  packet.Signals
	NumSurbs int
}

// AckRequest is what MsgIn and the Final/Forwarded dispatch paths submit to
// AckOut: an ack destined for destination, or a "random ack" (HalfKey
// None) sent as a privacy-preserving reply when the packet could not be
// processed.
type AckRequest struct {
	Destination address.Address
	Challenge   ticket.Challenge
	HalfKey     fn.Option[ticket.HalfKey]
}

// TicketEvent is emitted on the ticket-events channel whenever an
// acknowledgement resolves a relayed ticket as a win, or an incoming ticket
// is rejected before it is ever relayed. Exactly one of Outcome and
// Rejection is set.
type TicketEvent struct {
	Outcome   ticket.ResolvedAcknowledgement
	Rejection *TicketRejection
}

// TicketRejection records an incoming ticket that failed validation,
// whether caught by the decoder itself or by ValidateAndReplaceTicket.
type TicketRejection struct {
	Sender address.Address
	Issuer address.Address
	Cause  error
}

// WireOut is the sink MsgOut and MsgIn's relay path hand encoded packets
// to. Errors are logged by the caller and do not retry.
type WireOut interface {
	Send(ctx context.Context, peer address.Address, data []byte) error
}
