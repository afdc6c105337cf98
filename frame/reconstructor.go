package frame

import (
	"sync"
	"time"

	"github.com/hoprnet/hopr-relay-core/metrics"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/queue"
)

// Inspector is a read-only view onto a Reconstructor's in-flight frames,
// used by the session layer's reliability state to compute retransmission
// requests without taking ownership of the reassembly buffer.
type Inspector interface {
	// Missing returns the indices of segments not yet received for the
	// given frame id, and whether that frame is currently tracked at
	// all.
	Missing(id ID) (missing []uint8, tracked bool)

	// FirstSeen returns when the first segment of the given frame
	// arrived.
	FirstSeen(id ID) (time.Time, bool)
}

type inFlightFrame struct {
	seqLen    uint8
	have      [256]bool
	haveCount int
	data      [256][]byte
	firstSeen time.Time
	order     int64 // insertion order, for oldest-first eviction
}

// ReconstructorConfig bounds a Reconstructor's behavior.
type ReconstructorConfig struct {
	// Capacity is the maximum number of frames tracked in flight at
	// once. When exceeded, the oldest incomplete frame is evicted and
	// reported as FrameDiscarded.
	Capacity int

	// Timeout is how long a frame may remain incomplete before it is
	// emitted as IncompleteFrame.
	Timeout time.Duration

	// Clock allows tests to control the passage of time.
	Clock clock.Clock
}

// Reconstructor accepts segments and produces a stream of Results. At most
// Capacity frames are tracked in flight; a frame completes once all of its
// segments have arrived, and is then emitted immediately, in the order
// completion happened — not in frame-id order. A frame that sits
// incomplete for longer than Timeout is emitted as IncompleteFrame.
type Reconstructor struct {
	cfg ReconstructorConfig

	mu      sync.Mutex
	inFlight map[ID]*inFlightFrame
	seq      int64

	results *queue.ConcurrentQueue

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewReconstructor constructs a Reconstructor and starts its background
// timeout sweep. Callers must call Stop when done.
func NewReconstructor(cfg ReconstructorConfig) *Reconstructor {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}

	r := &Reconstructor{
		cfg:      cfg,
		inFlight: make(map[ID]*inFlightFrame),
		results:  queue.NewConcurrentQueue(defaultSegmentQueueSize),
		quit:     make(chan struct{}),
	}
	r.results.Start()

	r.wg.Add(1)
	go r.sweepLoop()

	return r
}

// Stop halts the background sweep and the result queue.
func (r *Reconstructor) Stop() {
	close(r.quit)
	r.wg.Wait()
	r.results.Stop()
}

// Results returns the stream of reassembled frames and frame errors.
func (r *Reconstructor) Results() <-chan interface{} {
	return r.results.ChanOut()
}

// Input delivers a single received segment to the reconstructor.
func (r *Reconstructor) Input(seg Segment) error {
	if err := seg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()

	f, ok := r.inFlight[seg.FrameID]
	if !ok {
		if len(r.inFlight) >= r.cfg.Capacity {
			r.evictOldestLocked()
		}

		f = &inFlightFrame{
			seqLen:    seg.SeqLen,
			firstSeen: r.cfg.Clock.Now(),
			order:     r.seq,
		}
		r.seq++
		r.inFlight[seg.FrameID] = f
	}

	if !f.have[seg.SeqIdx] {
		f.have[seg.SeqIdx] = true
		f.data[seg.SeqIdx] = seg.Data
		f.haveCount++
	}

	complete := f.haveCount == int(f.seqLen)
	if complete {
		delete(r.inFlight, seg.FrameID)
	}

	r.mu.Unlock()

	if complete {
		r.emitComplete(seg.FrameID, f)
	}

	return nil
}

func (r *Reconstructor) emitComplete(id ID, f *inFlightFrame) {
	var payload []byte
	for i := 0; i < int(f.seqLen); i++ {
		payload = append(payload, f.data[i]...)
	}

	r.results.ChanIn() <- Result{Frame: Frame{FrameID: id, Payload: payload}}
}

// evictOldestLocked discards the longest-outstanding in-flight frame. The
// caller must hold r.mu.
func (r *Reconstructor) evictOldestLocked() {
	var oldestID ID
	var oldestOrder int64 = -1

	for id, f := range r.inFlight {
		if oldestOrder == -1 || f.order < oldestOrder {
			oldestID = id
			oldestOrder = f.order
		}
	}

	if oldestOrder == -1 {
		return
	}

	delete(r.inFlight, oldestID)

	metrics.FrameDiscarded(FrameDiscarded.String())
	r.results.ChanIn() <- Result{Err: &Error{FrameID: oldestID, Reason: FrameDiscarded}}
}

// Discard explicitly abandons a tracked frame, e.g. after retransmission
// requests for it have been exhausted.
func (r *Reconstructor) Discard(id ID) {
	r.mu.Lock()
	_, ok := r.inFlight[id]
	if ok {
		delete(r.inFlight, id)
	}
	r.mu.Unlock()

	if ok {
		metrics.FrameDiscarded(FrameDiscarded.String())
		r.results.ChanIn() <- Result{Err: &Error{FrameID: id, Reason: FrameDiscarded}}
	}
}

func (r *Reconstructor) sweepLoop() {
	defer r.wg.Done()

	ticker := r.cfg.Clock.TickAfter(r.cfg.Timeout / 4)

	for {
		select {
		case <-r.quit:
			return
		case <-ticker:
			r.sweepTimeouts()
			ticker = r.cfg.Clock.TickAfter(r.cfg.Timeout / 4)
		}
	}
}

func (r *Reconstructor) sweepTimeouts() {
	now := r.cfg.Clock.Now()

	var expired []ID

	r.mu.Lock()
	for id, f := range r.inFlight {
		if now.Sub(f.firstSeen) >= r.cfg.Timeout {
			expired = append(expired, id)
			delete(r.inFlight, id)
		}
	}
	r.mu.Unlock()

	for _, id := range expired {
		metrics.FrameDiscarded(IncompleteFrame.String())
		r.results.ChanIn() <- Result{Err: &Error{FrameID: id, Reason: IncompleteFrame}}
	}
}

// Missing implements Inspector.
func (r *Reconstructor) Missing(id ID) ([]uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.inFlight[id]
	if !ok {
		return nil, false
	}

	var missing []uint8
	for i := 0; i < int(f.seqLen); i++ {
		if !f.have[i] {
			missing = append(missing, uint8(i))
		}
	}

	return missing, true
}

// FirstSeen implements Inspector.
func (r *Reconstructor) FirstSeen(id ID) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.inFlight[id]
	if !ok {
		return time.Time{}, false
	}

	return f.firstSeen, true
}

var _ Inspector = (*Reconstructor)(nil)
