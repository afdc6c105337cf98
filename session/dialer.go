package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/packet"
	"github.com/hoprnet/hopr-relay-core/pipeline"
)

// ApplicationTag distinguishes logical sessions multiplexed over the same
// underlying pipeline, the way an application-layer tag distinguishes
// conversations sharing one physical connection in the original p2p layer.
type ApplicationTag uint16

const tagSize = 2

// Submitter is the narrow view of a pipeline the Dialer needs: submit an
// outbound request and consume the decoded delivery stream. *pipeline.Pipeline
// satisfies this directly.
type Submitter interface {
	Submit(ctx context.Context, req pipeline.OutboundRequest) bool
	Deliveries() <-chan pipeline.Delivery
}

var _ Transport = (*DialedTransport)(nil)

type routeKey struct {
	pseudonym address.Pseudonym
	tag       ApplicationTag
}

// Dialer demultiplexes a single Submitter's delivery stream into many
// independent Transport instances, keyed by (reply pseudonym, application
// tag), so one underlying pipeline can carry many logical sessions at once
// — a session.Socket conversation and the probe package's ping/pong
// exchange can share the same pipeline without either consuming the
// other's datagrams.
type Dialer struct {
	pipe Submitter

	mu        sync.Mutex
	routes    map[routeKey]chan []byte
	listeners map[ApplicationTag]chan []byte
	closed    bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewDialer starts a Dialer's demultiplexing loop over pipe. Close stops it.
func NewDialer(pipe Submitter) *Dialer {
	d := &Dialer{
		pipe:      pipe,
		routes:    make(map[routeKey]chan []byte),
		listeners: make(map[ApplicationTag]chan []byte),
		quit:      make(chan struct{}),
	}

	d.wg.Add(1)
	go d.demux()

	return d
}

// Dial opens a Transport to destination under tag. It draws a fresh reply
// pseudonym so inbound SURB-carried replies correlate back to this
// conversation and no other dialed over the same Dialer.
func (d *Dialer) Dial(destination address.Address, tag ApplicationTag) (*DialedTransport, error) {
	pseudonym, err := address.NewPseudonym()
	if err != nil {
		return nil, fmt.Errorf("session: dial: %w", err)
	}

	recv := make(chan []byte, dialerRecvBuffer)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, fmt.Errorf("session: dialer closed")
	}
	d.routes[routeKey{pseudonym, tag}] = recv
	d.mu.Unlock()

	return &DialedTransport{
		dialer:      d,
		destination: destination,
		tag:         tag,
		pseudonym:   pseudonym,
		routing:     packet.NoAck{Destination: destination},
		recv:        recv,
	}, nil
}

// DialVia is Dial with an explicit routing decision (e.g. a resolved
// multi-hop ForwardPath) instead of the single-hop NoAck default.
func (d *Dialer) DialVia(destination address.Address, tag ApplicationTag, routing packet.DestinationRouting) (*DialedTransport, error) {
	t, err := d.Dial(destination, tag)
	if err != nil {
		return nil, err
	}
	t.routing = routing
	return t, nil
}

// Listen registers a wildcard route for tag, receiving datagrams from any
// sender pseudonym not already claimed by a Dial route — the server side of
// a tag, used by e.g. a probe responder that accepts pings from any peer.
func (d *Dialer) Listen(tag ApplicationTag) (*DialedTransport, error) {
	recv := make(chan []byte, dialerRecvBuffer)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, fmt.Errorf("session: dialer closed")
	}
	if _, exists := d.listeners[tag]; exists {
		d.mu.Unlock()
		return nil, fmt.Errorf("session: tag %d already has a listener", tag)
	}
	d.listeners[tag] = recv
	d.mu.Unlock()

	return &DialedTransport{
		dialer:   d,
		tag:      tag,
		listener: true,
		recv:     recv,
	}, nil
}

// Close stops the demultiplexing loop and closes every route's receive
// channel. Dialed/listening Transports become unusable after this.
func (d *Dialer) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.quit)
	for k, ch := range d.routes {
		close(ch)
		delete(d.routes, k)
	}
	for k, ch := range d.listeners {
		close(ch)
		delete(d.listeners, k)
	}
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

// demux reads every decoded delivery off the pipeline and routes its
// payload to whichever dialed or listening Transport claims (sender, tag);
// an unclaimed (sender, tag) pair is dropped, mirroring pipeline's own
// drop-on-no-consumer behavior for datagrams nobody's waiting on.
func (d *Dialer) demux() {
	defer d.wg.Done()

	for {
		select {
		case <-d.quit:
			return
		case dlv, ok := <-d.pipe.Deliveries():
			if !ok {
				return
			}
			d.route(dlv)
		}
	}
}

func (d *Dialer) route(dlv pipeline.Delivery) {
	tag, payload, err := splitTag(dlv.Payload)
	if err != nil {
		log.Debugf("session: dialer: %v", err)
		return
	}

	d.mu.Lock()
	recv, ok := d.routes[routeKey{dlv.Sender, tag}]
	if !ok {
		recv, ok = d.listeners[tag]
	}
	d.mu.Unlock()

	if !ok {
		log.Debugf("session: dialer: no route for tag %d from %s", tag, dlv.Sender)
		return
	}

	select {
	case recv <- payload:
	default:
		log.Debugf("session: dialer: receive buffer full for tag %d from %s", tag, dlv.Sender)
	}
}

func splitTag(b []byte) (ApplicationTag, []byte, error) {
	if len(b) < tagSize {
		return 0, nil, fmt.Errorf("datagram shorter than tag prefix")
	}
	tag := ApplicationTag(b[0])<<8 | ApplicationTag(b[1])
	return tag, b[tagSize:], nil
}

func prependTag(tag ApplicationTag, payload []byte) []byte {
	out := make([]byte, tagSize+len(payload))
	out[0] = byte(tag >> 8)
	out[1] = byte(tag)
	copy(out[tagSize:], payload)
	return out
}

// dialerRecvBuffer bounds how many undelivered datagrams a single route
// holds before new arrivals are dropped.
const dialerRecvBuffer = 64

// DialedTransport implements Transport over a Dialer route: SendDatagram
// tag-prefixes the payload and submits it through the Dialer's Submitter;
// Datagrams surfaces whatever the demux loop routed to this route.
type DialedTransport struct {
	dialer      *Dialer
	destination address.Address
	tag         ApplicationTag
	pseudonym   address.Pseudonym
	routing     packet.DestinationRouting
	listener    bool

	recv chan []byte
}

// SendDatagram tag-prefixes b and submits it to the underlying pipeline. A
// listening Transport (from Listen) has no destination of its own; a
// responder that needs to reply should Dial the peer it saw on Datagrams
// separately, addressed by whatever identity the received payload carries.
func (t *DialedTransport) SendDatagram(b []byte) error {
	if t.listener {
		return fmt.Errorf("session: dialed transport: listener has no destination to send to")
	}

	ok := t.dialer.pipe.Submit(context.Background(), pipeline.OutboundRequest{
		Routing:        t.routing,
		Payload:        prependTag(t.tag, b),
		ReplyPseudonym: t.pseudonym,
	})
	if !ok {
		return fmt.Errorf("session: dialed transport: submit dropped")
	}
	return nil
}

// Datagrams returns the stream of payloads (tag already stripped) routed to
// this Transport.
func (t *DialedTransport) Datagrams() <-chan []byte {
	return t.recv
}

// Destination returns the peer this Transport was dialed to. Zero for a
// Transport obtained from Listen.
func (t *DialedTransport) Destination() address.Address {
	return t.destination
}

// Close removes this Transport's route from the Dialer. Safe to call more
// than once.
func (t *DialedTransport) Close() error {
	t.dialer.mu.Lock()
	defer t.dialer.mu.Unlock()

	if t.dialer.closed {
		return nil
	}

	if t.listener {
		if ch, ok := t.dialer.listeners[t.tag]; ok {
			close(ch)
			delete(t.dialer.listeners, t.tag)
		}
		return nil
	}

	key := routeKey{t.pseudonym, t.tag}
	if ch, ok := t.dialer.routes[key]; ok {
		close(ch)
		delete(t.dialer.routes, key)
	}
	return nil
}
