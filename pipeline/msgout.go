package pipeline

import "context"

// runMsgOut is the egress task: (routing, app_data) -> encode_packet ->
// (next_hop, bytes) -> wire-out sink.
func (p *Pipeline) runMsgOut(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case req, ok := <-p.outbound:
			if !ok {
				return
			}
			p.encodeAndSend(ctx, req)
		}
	}
}

func (p *Pipeline) encodeAndSend(ctx context.Context, req OutboundRequest) {
	out, openers, err := p.encoder.EncodePacket(req.Payload, req.Routing, req.Signals)
	if err != nil {
		log.Errorf("pipeline: encode_packet: %v", err)
		return
	}

	if p.surbs != nil && !req.ReplyPseudonym.IsZero() {
		for _, o := range openers {
			p.surbs.Push(req.ReplyPseudonym, o.ID, o.SURB)
		}
	}

	if err := p.wireOut.Send(ctx, out.NextHop, out.Data); err != nil {
		log.Debugf("pipeline: wire-out send to %s: %v", out.NextHop, err)
	}
}
