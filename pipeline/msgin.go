package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/hoprnet/hopr-relay-core/fn"
	"github.com/hoprnet/hopr-relay-core/packet"
	"github.com/hoprnet/hopr-relay-core/ticket"
)

// runMsgIn is the ingress task: (peer, bytes) -> decode (bounded by
// PacketDecodingTimeout) -> dispatch by decoded variant.
func (p *Pipeline) runMsgIn(ctx context.Context, in <-chan WireDatagram) {
	for {
		select {
		case <-ctx.Done():
			return

		case dg, ok := <-in:
			if !ok {
				return
			}
			p.decodeAndDispatch(ctx, dg)
		}
	}
}

func (p *Pipeline) decodeAndDispatch(ctx context.Context, dg WireDatagram) {
	incoming, err, ok := p.decodeBounded(dg)
	if !ok {
		// Timed out; the decode goroutine is left to finish on its own
		// and its result, if any, is discarded.
		return
	}
	if err != nil {
		p.handleDecodeError(ctx, err)
		return
	}

	switch v := incoming.(type) {
	case packet.Acknowledgement:
		trySend(ctx, p.ackIn, inboundAckBatch{
			previousHop: v.PreviousHop,
			acks:        v.ReceivedAcks,
		}, p.cfg.QueueSendTimeout)

	case packet.Final:
		trySend(ctx, p.ackOutIn, AckRequest{
			Destination: v.PreviousHop,
			Challenge:   v.AckChallenge,
			HalfKey:     fn.Some(v.AckKey),
		}, p.cfg.QueueSendTimeout)

		trySend(ctx, p.upstream, Delivery{
			Sender:   v.Sender,
			Payload:  v.PlainText,
			Signals:  v.Signals,
			NumSurbs: v.NumSurbs,
		}, p.cfg.QueueSendTimeout)

	case packet.Forwarded:
		p.handleForwarded(ctx, v)
	}
}

// handleDecodeError dispatches on the three decode-failure shapes Decode
// may return: an undecodable datagram is dropped silently (it may be
// adversarial noise and its sender isn't even identifiable); a processing
// error or invalid ticket still gets a random ack back to its sender so
// the sender's acknowledgement wait doesn't linger, and an invalid ticket
// additionally surfaces a TicketEvent rejection for visibility.
func (p *Pipeline) handleDecodeError(ctx context.Context, err error) {
	var invalidTicket *packet.ErrInvalidTicket
	var processingErr *packet.ErrProcessingError
	var undecodable *packet.ErrUndecodable

	switch {
	case errors.As(err, &invalidTicket):
		log.Debugf("pipeline: invalid ticket from %s (issuer %s): %v",
			invalidTicket.Sender, invalidTicket.Issuer, invalidTicket.Cause)

		trySend(ctx, p.tickets, TicketEvent{Rejection: &TicketRejection{
			Sender: invalidTicket.Sender,
			Issuer: invalidTicket.Issuer,
			Cause:  invalidTicket.Cause,
		}}, p.cfg.QueueSendTimeout)

		trySend(ctx, p.ackOutIn, AckRequest{
			Destination: invalidTicket.Sender,
			Challenge:   invalidTicket.Challenge,
			HalfKey:     fn.None[ticket.HalfKey](),
		}, p.cfg.QueueSendTimeout)

	case errors.As(err, &processingErr):
		log.Debugf("pipeline: processing error from %s: %v",
			processingErr.Sender, processingErr.Cause)

		trySend(ctx, p.ackOutIn, AckRequest{
			Destination: processingErr.Sender,
			Challenge:   processingErr.Challenge,
			HalfKey:     fn.None[ticket.HalfKey](),
		}, p.cfg.QueueSendTimeout)

	case errors.As(err, &undecodable):
		log.Debugf("pipeline: undecodable datagram: %v", undecodable.Cause)

	default:
		log.Debugf("pipeline: unrecognised decode error: %v", err)
	}
}

func (p *Pipeline) handleForwarded(ctx context.Context, f packet.Forwarded) {
	_, err := p.proc.ValidateAndReplaceTicket(ticket.ForwardedInput{
		Ticket:      f.ReceivedTicket,
		PreviousHop: f.PreviousHop,
		NextHop:     f.NextHop,
		OwnHalfKey:  f.AckKeyPrevHop,
		PathPos:     f.PathPos,
	})
	if err != nil {
		log.Debugf("pipeline: invalid ticket from %s: %v", f.PreviousHop, err)

		trySend(ctx, p.tickets, TicketEvent{Rejection: &TicketRejection{
			Sender: f.PreviousHop,
			Issuer: f.PreviousHop,
			Cause:  err,
		}}, p.cfg.QueueSendTimeout)

		// A random ack still needs to go back so the previous hop's
		// acknowledgement wait doesn't linger; no forwarding happens.
		trySend(ctx, p.ackOutIn, AckRequest{
			Destination: f.PreviousHop,
			Challenge:   f.AckChallenge,
			HalfKey:     fn.None[ticket.HalfKey](),
		}, p.cfg.QueueSendTimeout)
		return
	}

	if err := p.wireOut.Send(ctx, f.NextHop, f.Data); err != nil {
		log.Debugf("pipeline: wire-out forward to %s: %v", f.NextHop, err)
	}

	trySend(ctx, p.ackOutIn, AckRequest{
		Destination: f.PreviousHop,
		Challenge:   f.AckChallenge,
		HalfKey:     fn.Some(f.AckKeyPrevHop),
	}, p.cfg.QueueSendTimeout)
}

// decodeResult carries the decode goroutine's outcome back to
// decodeBounded: a decoded packet, or one of Decode's typed failure
// errors.
type decodeResult struct {
	pkt packet.IncomingPacket
	err error
}

// decodeBounded runs the decoder with PacketDecodingTimeout. The second
// return value is false iff the timeout elapsed first, in which case the
// error return is meaningless.
func (p *Pipeline) decodeBounded(dg WireDatagram) (packet.IncomingPacket, error, bool) {
	resultCh := make(chan decodeResult, 1)

	go func() {
		incoming, err := p.decoder.Decode(dg.Peer, dg.Data)
		resultCh <- decodeResult{pkt: incoming, err: err}
	}()

	timer := time.NewTimer(p.cfg.PacketDecodingTimeout)
	defer timer.Stop()

	select {
	case r := <-resultCh:
		return r.pkt, r.err, true
	case <-timer.C:
		log.Debugf("pipeline: decode from %s exceeded %s", dg.Peer, p.cfg.PacketDecodingTimeout)
		return nil, nil, false
	}
}
