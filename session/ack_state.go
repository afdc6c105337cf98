package session

import (
	"sync"
	"time"

	"github.com/hoprnet/hopr-relay-core/frame"
	"github.com/hoprnet/hopr-relay-core/metrics"
	"github.com/lightningnetwork/lnd/clock"
)

// AcknowledgementStateConfig carries the policy constants that parameterize
// the stateful session's reliability behavior.
type AcknowledgementStateConfig struct {
	// ExpectedPacketLatency is how long to wait, from the first segment
	// of a frame, before requesting retransmission of whatever is still
	// missing.
	ExpectedPacketLatency time.Duration

	// AcknowledgementDelay is how long to batch up fully-received frame
	// ids before emitting an Acknowledge message covering them.
	AcknowledgementDelay time.Duration

	// MaxRetransmissions bounds how many times a single frame may be
	// the subject of a retransmission request before the reconstructor
	// is told to give up on it.
	MaxRetransmissions int

	// Clock allows tests to control time.
	Clock clock.Clock
}

func (c *AcknowledgementStateConfig) setDefaults() {
	if c.ExpectedPacketLatency <= 0 {
		c.ExpectedPacketLatency = 500 * time.Millisecond
	}
	if c.AcknowledgementDelay <= 0 {
		c.AcknowledgementDelay = 200 * time.Millisecond
	}
	if c.MaxRetransmissions <= 0 {
		c.MaxRetransmissions = 5
	}
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}
}

type egressRecord struct {
	seg  frame.Segment
	sent time.Time
}

// AcknowledgementState tracks the bookkeeping needed for the stateful
// session's reliability: which segments have been sent but not yet
// acknowledged, which frames we've received segments for but not yet fully
// acknowledged, and how many times we've asked for a retransmission of
// each.
type AcknowledgementState struct {
	cfg AcknowledgementStateConfig

	mu sync.Mutex

	// egress: (frame_id, seq_idx) -> record, cleared on Acknowledge.
	egress map[frame.ID]map[uint8]egressRecord

	// ingress: frame_id -> first-seen time, cleared once acked.
	ingressFirstSeen map[frame.ID]time.Time
	pendingAcks      map[frame.ID]struct{}

	retransmitCount map[frame.ID]int
}

// NewAcknowledgementState constructs reliability state with the given
// config, filling in documented defaults for zero fields.
func NewAcknowledgementState(cfg AcknowledgementStateConfig) *AcknowledgementState {
	cfg.setDefaults()

	return &AcknowledgementState{
		cfg:              cfg,
		egress:           make(map[frame.ID]map[uint8]egressRecord),
		ingressFirstSeen: make(map[frame.ID]time.Time),
		pendingAcks:      make(map[frame.ID]struct{}),
		retransmitCount:  make(map[frame.ID]int),
	}
}

// RecordSent records that a segment has just been sent, for retransmission
// bookkeeping.
func (a *AcknowledgementState) RecordSent(seg frame.Segment) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.egress[seg.FrameID]
	if !ok {
		m = make(map[uint8]egressRecord)
		a.egress[seg.FrameID] = m
	}

	m[seg.SeqIdx] = egressRecord{seg: seg, sent: a.cfg.Clock.Now()}
}

// HandleAcknowledge drops all egress bookkeeping for the acknowledged frame
// ids, since the peer has confirmed full receipt.
func (a *AcknowledgementState) HandleAcknowledge(ids []frame.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range ids {
		if _, ok := a.egress[id]; !ok {
			// Acknowledged a frame we're not tracking: egress records
			// are only dropped here, so this is a repeated
			// acknowledgement or one for a frame never sent.
			// Accepted silently; still worth counting.
			metrics.FrameLateAck()
			continue
		}
		delete(a.egress, id)
	}
}

// SegmentsToResend returns the segments named by a retransmission request
// that we still have recorded, so they can be resent through the control
// channel.
func (a *AcknowledgementState) SegmentsToResend(req RetransmitRequest) []frame.Segment {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.egress[req.FrameID]
	if !ok {
		return nil
	}

	var out []frame.Segment
	for idx, rec := range m {
		if req.Missing&(1<<uint(idx)) != 0 {
			out = append(out, rec.seg)
		}
	}

	return out
}

// RecordReceived marks that a segment of the given frame has just arrived,
// recording the frame's first-seen time if this is the first segment seen
// for it. Queuing the frame for acknowledgement is left to MarkComplete.
func (a *AcknowledgementState) RecordReceived(id frame.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.ingressFirstSeen[id]; !ok {
		a.ingressFirstSeen[id] = a.cfg.Clock.Now()
	}
}

// MarkComplete queues a fully-received frame for the next batched
// Acknowledge, and clears its ingress bookkeeping.
func (a *AcknowledgementState) MarkComplete(id frame.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pendingAcks[id] = struct{}{}
	delete(a.ingressFirstSeen, id)
	delete(a.retransmitCount, id)
}

// DrainPendingAcks removes and returns every frame id accumulated since the
// last call, for emission as a single Acknowledge message.
func (a *AcknowledgementState) DrainPendingAcks() []frame.ID {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.pendingAcks) == 0 {
		return nil
	}

	ids := make([]frame.ID, 0, len(a.pendingAcks))
	for id := range a.pendingAcks {
		ids = append(ids, id)
	}
	a.pendingAcks = make(map[frame.ID]struct{})

	return ids
}

// OverdueFrames returns the ids of in-flight, still-incomplete frames whose
// ExpectedPacketLatency has elapsed since their first segment arrived,
// along with whether each has exhausted MaxRetransmissions (in which case
// the caller should discard it from the reconstructor instead of asking
// for more).
func (a *AcknowledgementState) OverdueFrames(inspector frame.Inspector) (
	retry []frame.ID, giveUp []frame.ID) {

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.cfg.Clock.Now()

	for id, firstSeen := range a.ingressFirstSeen {
		if now.Sub(firstSeen) < a.cfg.ExpectedPacketLatency {
			continue
		}

		if _, tracked := inspector.Missing(id); !tracked {
			continue
		}

		if a.retransmitCount[id] >= a.cfg.MaxRetransmissions {
			giveUp = append(giveUp, id)
			delete(a.ingressFirstSeen, id)
			delete(a.retransmitCount, id)
			continue
		}

		a.retransmitCount[id]++
		retry = append(retry, id)
	}

	return retry, giveUp
}
