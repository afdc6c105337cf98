package pipeline

import (
	"context"
	"errors"

	"github.com/hoprnet/hopr-relay-core/metrics"
	"github.com/hoprnet/hopr-relay-core/packet"
	"github.com/hoprnet/hopr-relay-core/ticket"
)

// runAckIn is the ack-ingress task: for each received batch, resolve
// tickets via the ticket processor. Winning tickets are emitted on the
// ticket-events channel; losing tickets and sender-side resolutions are
// dropped; UnexpectedAcknowledgement is benign (routinely produced by
// 0-hop traffic) and logged at trace level only.
func (p *Pipeline) runAckIn(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case batch, ok := <-p.ackIn:
			if !ok {
				return
			}
			for _, ack := range batch.acks {
				p.resolveAck(ctx, ack)
			}
		}
	}
}

func (p *Pipeline) resolveAck(ctx context.Context, ack packet.Ack) {
	outcome, err := p.proc.FindTicketToAcknowledge(ack.Challenge, ack.HalfKey)
	if err != nil {
		var notFound *ticket.ErrUnacknowledgedTicketNotFound
		if errors.As(err, &notFound) {
			log.Tracef("pipeline: unexpected acknowledgement: %v", err)
			return
		}
		log.Warnf("pipeline: resolve acknowledgement: %v", err)
		return
	}

	switch outcome.(type) {
	case ticket.RelayingWin:
		metrics.TicketWon()
		trySend(ctx, p.tickets, TicketEvent{Outcome: outcome}, p.cfg.QueueSendTimeout)

	case ticket.RelayingLoss:
		metrics.TicketLost()

	case ticket.Sending:
		// Sender-side resolutions are dropped silently, per the
		// pipeline's ack-ingress contract.
	}
}
