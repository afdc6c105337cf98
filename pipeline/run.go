package pipeline

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/go-errors/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
	"github.com/hoprnet/hopr-relay-core/packet"
	"github.com/hoprnet/hopr-relay-core/surb"
	"github.com/hoprnet/hopr-relay-core/ticket"
)

// Pipeline wires MsgOut, MsgIn, AckOut, AckIn, and an optional Mixer into
// one abortable unit (component F). Dropping the pipeline (Stop) aborts
// every task; a task that hits an unrecoverable sink error terminates on
// its own without affecting its peers.
type Pipeline struct {
	cfg Config

	encoder packet.PacketEncoder
	decoder packet.PacketDecoder
	wireOut WireOut
	proc    *ticket.Processor
	chain   chain.Values
	surbs   *surb.Store // nil if reply-block storage isn't wanted

	outbound chan OutboundRequest
	wireIn   chan WireDatagram
	upstream chan Delivery
	ackOutIn chan AckRequest
	ackIn    chan inboundAckBatch
	tickets  chan TicketEvent

	mixer Mixer

	cancel context.CancelFunc
	group  *errgroup.Group
	once   sync.Once
}

// inboundAckBatch is what MsgIn's Acknowledgement branch forwards to AckIn.
type inboundAckBatch struct {
	previousHop address.Address
	acks        []packet.Ack
}

// Mixer optionally reorders wire datagrams on ingress to widen the
// anonymity set. Its only contract is to preserve datagram contents while
// reordering and delaying; Identity performs no reordering at all.
type Mixer interface {
	// Mix consumes in and produces a reordered/delayed stream on the
	// returned channel, until ctx is cancelled.
	Mix(ctx context.Context, in <-chan WireDatagram) <-chan WireDatagram
}

// NewPipeline constructs a Pipeline. mixer may be nil, in which case
// datagrams flow from Deliver straight into MsgIn's decode step.
func NewPipeline(cfg Config, encoder packet.PacketEncoder, decoder packet.PacketDecoder,
	wireOut WireOut, proc *ticket.Processor, cv chain.Values, surbs *surb.Store,
	mixer Mixer) *Pipeline {

	cfg.setDefaults()

	return &Pipeline{
		cfg:      cfg,
		encoder:  encoder,
		decoder:  decoder,
		wireOut:  wireOut,
		proc:     proc,
		chain:    cv,
		surbs:    surbs,
		outbound: make(chan OutboundRequest, cfg.QueueCapacity),
		wireIn:   make(chan WireDatagram, cfg.QueueCapacity),
		upstream: make(chan Delivery, cfg.QueueCapacity),
		ackOutIn: make(chan AckRequest, cfg.QueueCapacity),
		ackIn:    make(chan inboundAckBatch, cfg.QueueCapacity),
		tickets:  make(chan TicketEvent, cfg.QueueCapacity),
		mixer:    mixer,
	}
}

// Start launches the five tasks. Start must be called at most once.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	group, gctx := errgroup.WithContext(ctx)
	p.group = group

	wireIn := (<-chan WireDatagram)(p.wireIn)
	if p.mixer != nil {
		wireIn = p.mixer.Mix(gctx, p.wireIn)
	}

	group.Go(func() error { runTask("msgout", func() { p.runMsgOut(gctx) }); return nil })
	group.Go(func() error { runTask("msgin", func() { p.runMsgIn(gctx, wireIn) }); return nil })
	group.Go(func() error { runTask("ackout", func() { p.runAckOut(gctx) }); return nil })
	group.Go(func() error { runTask("ackin", func() { p.runAckIn(gctx) }); return nil })
}

// runTask runs fn with a panic recovered rather than propagated, so one
// task's internal failure can't bring down its siblings or the process —
// errgroup.Go only ever sees a returned error, never a panic, so without
// this a panic in any one task would crash the whole pipeline despite each
// task function returning nil precisely to keep failures contained. The
// recovered value is wrapped with go-errors/errors for a stack trace,
// matching the teacher's use of that library wherever an unexpected
// internal failure needs more than a bare message to debug.
func runTask(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := goerrors.Wrap(r, 1)
			log.Errorf("pipeline: %s task panicked: %v\n%s", name, err.Error(), err.ErrorStack())
		}
	}()
	fn()
}

// Stop cancels every task and waits for them to exit. Safe to call more
// than once; only the first call has effect.
func (p *Pipeline) Stop() {
	p.once.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		if p.group != nil {
			_ = p.group.Wait()
		}
	})
}

// Submit enqueues an outbound request for MsgOut, subject to
// QueueSendTimeout.
func (p *Pipeline) Submit(ctx context.Context, req OutboundRequest) bool {
	return trySend(ctx, p.outbound, req, p.cfg.QueueSendTimeout)
}

// Deliver hands a datagram just received from the transport to MsgIn (via
// the mixer, if configured), subject to QueueSendTimeout.
func (p *Pipeline) Deliver(ctx context.Context, dg WireDatagram) bool {
	return trySend(ctx, p.wireIn, dg, p.cfg.QueueSendTimeout)
}

// Deliveries returns the stream of application payloads decoded from Final
// packets.
func (p *Pipeline) Deliveries() <-chan Delivery {
	return p.upstream
}

// TicketEvents returns the stream of ticket-related events: winning
// acknowledgement resolutions and incoming-ticket rejections. Ack-side
// losses and sender-side resolutions are dropped silently.
func (p *Pipeline) TicketEvents() <-chan TicketEvent {
	return p.tickets
}

// trySend attempts to send v on ch, bounded by timeout and ctx. It returns
// false (and drops v) rather than blocking the caller indefinitely.
func trySend[T any](ctx context.Context, ch chan<- T, v T, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- v:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
