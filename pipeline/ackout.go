package pipeline

import (
	"context"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/packet"
	"github.com/hoprnet/hopr-relay-core/ticket"
	"github.com/lightningnetwork/lnd/ticker"
)

// runAckOut is the ack-egress task: collect (destination, Option<half_key>)
// for AckBufferInterval, group by destination, and emit each group as one
// or more batched acknowledgement packets chunked at MaxAckBatchSize.
func (p *Pipeline) runAckOut(ctx context.Context) {
	buf := make(map[address.Address][]packet.Ack)

	t := ticker.New(p.cfg.AckBufferInterval)
	t.Resume()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case req, ok := <-p.ackOutIn:
			if !ok {
				return
			}
			buf[req.Destination] = append(buf[req.Destination], packet.Ack{
				Challenge: req.Challenge,
				HalfKey:   req.HalfKey.UnwrapOr(ticket.HalfKey{}),
			})

		case <-t.Ticks():
			p.flushAckBatches(ctx, buf)
			buf = make(map[address.Address][]packet.Ack)
		}
	}
}

func (p *Pipeline) flushAckBatches(ctx context.Context, buf map[address.Address][]packet.Ack) {
	for dest, acks := range buf {
		for start := 0; start < len(acks); start += p.cfg.MaxAckBatchSize {
			end := start + p.cfg.MaxAckBatchSize
			if end > len(acks) {
				end = len(acks)
			}

			out, err := p.encoder.EncodeAcknowledgements(acks[start:end], dest)
			if err != nil {
				log.Errorf("pipeline: encode_acknowledgements to %s: %v", dest, err)
				continue
			}

			if err := p.wireOut.Send(ctx, out.NextHop, out.Data); err != nil {
				log.Debugf("pipeline: wire-out ack send to %s: %v", dest, err)
			}
		}
	}
}
