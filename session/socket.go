package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/hoprnet/hopr-relay-core/frame"
	"github.com/lightningnetwork/lnd/clock"
)

// SocketConfig bounds the segmenter and reconstructor a Socket wires
// together.
type SocketConfig struct {
	Segmenter     frame.Config
	Reconstructor frame.ReconstructorConfig
}

// Socket is a reliable-ish framed transport built on top of an unreliable
// Transport. A stateless Socket offers best-effort delivery: a frame that
// loses a segment is simply never completed, and surfaces through Read as
// an IncompleteFrame error once the reconstructor's timeout elapses after
// its first arriving segment; a frame none of whose segments arrive is
// never seen by the reconstructor and is not reported. A stateful Socket additionally runs an AcknowledgementState,
// requesting retransmission of missing segments and acknowledging complete
// frames, so that loss is recovered rather than merely reported.
type Socket struct {
	transport Transport
	seg       *frame.Segmenter
	rec       *frame.Reconstructor
	ack       *AcknowledgementState // nil for a stateless socket

	clock clock.Clock

	closeOnce sync.Once
	quit      chan struct{}
	wg        sync.WaitGroup
}

// NewStatelessSocket constructs a Socket with no acknowledgement or
// retransmission behavior: segments are sent once, and incomplete frames
// are reported rather than recovered.
func NewStatelessSocket(transport Transport, cfg SocketConfig) (*Socket, error) {
	return newSocket(transport, cfg, nil)
}

// NewStatefulSocket constructs a Socket that additionally tracks sent and
// received segments, requesting retransmission of what's missing and
// acknowledging what's complete, per ackCfg.
func NewStatefulSocket(transport Transport, cfg SocketConfig, ackCfg AcknowledgementStateConfig) (*Socket, error) {
	return newSocket(transport, cfg, NewAcknowledgementState(ackCfg))
}

func newSocket(transport Transport, cfg SocketConfig, ack *AcknowledgementState) (*Socket, error) {
	seg, err := frame.NewSegmenter(cfg.Segmenter)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	rec := frame.NewReconstructor(cfg.Reconstructor)

	ck := cfg.Reconstructor.Clock
	if ck == nil {
		ck = clock.NewDefaultClock()
	}

	s := &Socket{
		transport: transport,
		seg:       seg,
		rec:       rec,
		ack:       ack,
		clock:     ck,
		quit:      make(chan struct{}),
	}

	s.wg.Add(2)
	go s.sendLoop()
	go s.recvLoop()

	if ack != nil {
		s.wg.Add(1)
		go s.reliabilityLoop()
	}

	return s, nil
}

// Write segments b into one or more frames and sends them over the
// underlying transport.
func (s *Socket) Write(b []byte) (int, error) {
	return s.seg.Write(b)
}

// Read blocks until the next reassembled frame, or the reason one could not
// be produced.
func (s *Socket) Read() (frame.Result, error) {
	select {
	case v, ok := <-s.rec.Results():
		if !ok {
			return frame.Result{}, fmt.Errorf("session: socket closed")
		}
		return v.(frame.Result), nil
	case <-s.quit:
		return frame.Result{}, fmt.Errorf("session: socket closed")
	}
}

// Close tears down the socket's background loops and underlying resources.
// Safe to call more than once.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
		s.seg.Stop()
		s.rec.Stop()
		err = s.transport.Close()
	})
	return err
}

// sendLoop drains segments produced by the Segmenter, wraps them in a
// Message, and hands them to the transport. For a stateful socket it also
// records each segment's send time so it can be resent on request.
func (s *Socket) sendLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.quit:
			return
		case v, ok := <-s.seg.Segments():
			if !ok {
				return
			}
			seg := v.(frame.Segment)

			if s.ack != nil {
				s.ack.RecordSent(seg)
			}

			s.sendSegment(seg)
		}
	}
}

func (s *Socket) sendSegment(seg frame.Segment) {
	b, err := NewSegmentMessage(seg).Encode()
	if err != nil {
		log.Errorf("session: encode segment: %v", err)
		return
	}

	if err := s.transport.SendDatagram(b); err != nil {
		log.Debugf("session: send datagram: %v", err)
	}
}

// recvLoop decodes datagrams off the transport and dispatches them by tag.
func (s *Socket) recvLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.quit:
			return
		case b, ok := <-s.transport.Datagrams():
			if !ok {
				return
			}

			msg, err := Decode(b)
			if err != nil {
				log.Debugf("session: decode datagram: %v", err)
				continue
			}

			s.dispatch(msg)
		}
	}
}

func (s *Socket) dispatch(msg Message) {
	switch msg.Tag {
	case tagSegment:
		if s.ack != nil {
			s.ack.RecordReceived(msg.Segment.FrameID)
		}

		if err := s.rec.Input(msg.Segment); err != nil {
			log.Debugf("session: reconstructor input: %v", err)
			return
		}

		if s.ack != nil {
			if _, tracked := s.rec.Missing(msg.Segment.FrameID); !tracked {
				// Not tracked means either it completed just now or
				// was evicted; either way it's no longer pending.
				s.ack.MarkComplete(msg.Segment.FrameID)
			}
		}

	case tagRequest:
		if s.ack == nil {
			return
		}
		for _, resend := range s.ack.SegmentsToResend(msg.Request) {
			s.sendSegment(resend)
		}

	case tagAcknowledge:
		if s.ack == nil {
			return
		}
		s.ack.HandleAcknowledge(msg.Acknowledge)
	}
}

// reliabilityLoop periodically emits batched Acknowledge messages and
// Request messages for overdue frames, and tells the reconstructor to give
// up on frames that have exhausted their retransmission budget.
func (s *Socket) reliabilityLoop() {
	defer s.wg.Done()

	interval := s.ack.cfg.AcknowledgementDelay
	if retryInterval := s.ack.cfg.ExpectedPacketLatency; retryInterval < interval {
		interval = retryInterval
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := s.clock.TickAfter(interval)

	for {
		select {
		case <-s.quit:
			return
		case <-ticker:
			s.runReliabilityTick()
			ticker = s.clock.TickAfter(interval)
		}
	}
}

func (s *Socket) runReliabilityTick() {
	if ids := s.ack.DrainPendingAcks(); len(ids) > 0 {
		s.sendAcknowledge(ids)
	}

	retry, giveUp := s.ack.OverdueFrames(s.rec)

	for _, id := range retry {
		missing, tracked := s.rec.Missing(id)
		if !tracked {
			continue
		}

		var bitmap uint64
		for _, idx := range missing {
			if idx < 64 {
				bitmap |= 1 << uint(idx)
			}
		}

		s.sendRequest(RetransmitRequest{FrameID: id, Missing: bitmap})
	}

	for _, id := range giveUp {
		s.rec.Discard(id)
	}
}

func (s *Socket) sendAcknowledge(ids []frame.ID) {
	b, err := NewAcknowledgeMessage(ids).Encode()
	if err != nil {
		log.Errorf("session: encode acknowledge: %v", err)
		return
	}
	if err := s.transport.SendDatagram(b); err != nil {
		log.Debugf("session: send acknowledge: %v", err)
	}
}

func (s *Socket) sendRequest(req RetransmitRequest) {
	b, err := NewRequestMessage(req).Encode()
	if err != nil {
		log.Errorf("session: encode request: %v", err)
		return
	}
	if err := s.transport.SendDatagram(b); err != nil {
		log.Debugf("session: send request: %v", err)
	}
}
