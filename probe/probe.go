// Package probe implements active neighbour liveness checking over the
// packet pipeline (component G): a ping/pong exchange carried inside
// 0-hop packets, with timeout-based failure reporting.
package probe

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/metrics"
	"github.com/lightningnetwork/lnd/clock"
)

// StatusSink is the narrow capability the prober notifies on completion
// of each probe, kept separate from the Prober itself so the "who to
// notify" policy (fan out to subscribers, update a health registry, etc.)
// can vary independently of the ping/pong mechanics.
type StatusSink interface {
	// OnFinished reports the outcome of one probe: latency on success,
	// or a timeout error on expiry.
	OnFinished(peer address.Address, latency time.Duration, err error)
}

// ErrTimeout is returned to a StatusSink when no pong arrives in time.
type ErrTimeout struct {
	Peer    address.Address
	Timeout time.Duration
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("probe: %s timed out after %s", e.Peer, e.Timeout)
}

// Message is the ping/pong payload carried inside a 0-hop packet.
type Message struct {
	IsPong bool
	Nonce  uint64
}

// Encode serializes a probe Message: tag byte (0 = ping, 1 = pong)
// followed by an 8-byte big-endian nonce.
func (m Message) Encode() []byte {
	buf := make([]byte, 9)
	if m.IsPong {
		buf[0] = 1
	}
	binary.BigEndian.PutUint64(buf[1:], m.Nonce)
	return buf
}

// DecodeMessage parses a probe Message from its wire form.
func DecodeMessage(b []byte) (Message, error) {
	if len(b) != 9 {
		return Message{}, fmt.Errorf("probe: malformed message: want 9 bytes, got %d", len(b))
	}
	return Message{
		IsPong: b[0] == 1,
		Nonce:  binary.BigEndian.Uint64(b[1:]),
	}, nil
}

// Sender is the narrow view of the packet pipeline the prober needs to
// emit a 0-hop ping and receive the resulting pong.
type Sender interface {
	// SendPing emits a 0-hop forward packet containing msg's encoding
	// addressed to peer, under the given pseudonym, with a 0-hop return
	// path attached so the peer can reply.
	SendPing(peer address.Address, pseudonym address.Pseudonym, msg Message) error
}

type pendingProbe struct {
	peer     address.Address
	nonce    uint64
	start    time.Time
	deadline time.Time
}

// Config bounds the prober's timeout.
type Config struct {
	Timeout time.Duration
	Clock   clock.Clock
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}
}

// Prober issues pings to peers and resolves the resulting pongs (or their
// absence) against a time-to-live cache of outstanding probes.
type Prober struct {
	cfg    Config
	sender Sender
	sink   StatusSink

	mu      sync.Mutex
	pending map[address.Pseudonym]*pendingProbe

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewProber constructs a Prober wired to the given packet sender and
// completion sink, and starts its background expiry sweep. Callers must
// call Stop when done.
func NewProber(cfg Config, sender Sender, sink StatusSink) *Prober {
	cfg.setDefaults()

	p := &Prober{
		cfg:     cfg,
		sender:  sender,
		sink:    sink,
		pending: make(map[address.Pseudonym]*pendingProbe),
		quit:    make(chan struct{}),
	}

	p.wg.Add(1)
	go p.sweepLoop()

	return p
}

// Stop halts the background expiry sweep.
func (p *Prober) Stop() {
	close(p.quit)
	p.wg.Wait()
}

// Ping allocates a fresh pseudonym, sends a ping carrying nonce to peer,
// and records the outstanding probe. Completion (success or timeout) is
// reported asynchronously through the configured StatusSink.
func (p *Prober) Ping(peer address.Address, nonce uint64) error {
	pseudonym, err := address.NewPseudonym()
	if err != nil {
		return err
	}

	now := p.cfg.Clock.Now()

	p.mu.Lock()
	p.pending[pseudonym] = &pendingProbe{
		peer:     peer,
		nonce:    nonce,
		start:    now,
		deadline: now.Add(p.cfg.Timeout),
	}
	p.mu.Unlock()

	if err := p.sender.SendPing(peer, pseudonym, Message{Nonce: nonce}); err != nil {
		p.mu.Lock()
		delete(p.pending, pseudonym)
		p.mu.Unlock()
		return err
	}

	return nil
}

// HandlePong looks up the outstanding probe for pseudonym and, if the
// nonce matches, reports success and removes it. Probes not found (never
// sent, already resolved, or already expired) are ignored.
func (p *Prober) HandlePong(pseudonym address.Pseudonym, msg Message) {
	if !msg.IsPong {
		return
	}

	p.mu.Lock()
	pp, ok := p.pending[pseudonym]
	if ok && pp.nonce == msg.Nonce {
		delete(p.pending, pseudonym)
	} else {
		ok = false
	}
	p.mu.Unlock()

	if !ok {
		return
	}

	latency := p.cfg.Clock.Now().Sub(pp.start)
	metrics.ProbeRoundTrip(pp.peer.String(), latency.Seconds())
	p.sink.OnFinished(pp.peer, latency, nil)
}

func (p *Prober) sweepLoop() {
	defer p.wg.Done()

	ticker := p.cfg.Clock.TickAfter(p.cfg.Timeout / 4)

	for {
		select {
		case <-p.quit:
			return
		case <-ticker:
			p.sweepExpired()
			ticker = p.cfg.Clock.TickAfter(p.cfg.Timeout / 4)
		}
	}
}

func (p *Prober) sweepExpired() {
	now := p.cfg.Clock.Now()

	var expired []*pendingProbe

	p.mu.Lock()
	for pseudonym, pp := range p.pending {
		if !now.Before(pp.deadline) {
			expired = append(expired, pp)
			delete(p.pending, pseudonym)
		}
	}
	p.mu.Unlock()

	for _, pp := range expired {
		p.sink.OnFinished(pp.peer, 0, &ErrTimeout{Peer: pp.peer, Timeout: p.cfg.Timeout})
	}
}
