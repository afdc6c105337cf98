package frame

import (
	"fmt"
	"sync"

	"github.com/lightningnetwork/lnd/queue"
)

// defaultSegmentQueueSize is the buffer guarantee given to the internal
// segment queue before it starts allocating overflow storage.
const defaultSegmentQueueSize = 50

// Segmenter exposes a write-half (a sink of frames) and a read-half (a
// stream of segments). Writes are split along frame boundaries of at most
// FrameSize bytes; each resulting frame is cut into segments of at most
// SegmentCapacity bytes of payload.
type Segmenter struct {
	frameSize      int
	segmentCap     int
	nextFrameID    ID
	nextFrameIDMtx sync.Mutex

	segments *queue.ConcurrentQueue
}

// Config bounds a Segmenter's output.
type Config struct {
	// FrameSize is the maximum payload length of a single frame; writes
	// longer than this are split across multiple frames.
	FrameSize int

	// SegmentCapacity is the maximum payload length of a single segment,
	// derived from the underlying transport's MTU minus wire overhead.
	SegmentCapacity int
}

// NewSegmenter constructs a Segmenter and starts its internal segment
// queue. Callers must call Stop when done.
func NewSegmenter(cfg Config) (*Segmenter, error) {
	if cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("frame: FrameSize must be positive")
	}
	if cfg.SegmentCapacity <= 0 {
		return nil, fmt.Errorf("frame: SegmentCapacity must be positive")
	}

	s := &Segmenter{
		frameSize:   cfg.FrameSize,
		segmentCap:  cfg.SegmentCapacity,
		nextFrameID: 0,
		segments:    queue.NewConcurrentQueue(defaultSegmentQueueSize),
	}
	s.segments.Start()

	return s, nil
}

// Stop tears down the Segmenter's internal queue.
func (s *Segmenter) Stop() {
	s.segments.Stop()
}

// Segments returns the read-half: the stream of segments produced by
// writes, in the order they were generated.
func (s *Segmenter) Segments() <-chan interface{} {
	return s.segments.ChanOut()
}

// Write accepts an arbitrary byte run, splitting it into one or more frames
// of at most FrameSize bytes each. Every call produces at least one frame,
// even for a zero-length write, so that empty application messages still
// round-trip as empty frames.
func (s *Segmenter) Write(b []byte) (int, error) {
	total := len(b)

	if total == 0 {
		s.writeFrame(nil)
		return 0, nil
	}

	for len(b) > 0 {
		n := s.frameSize
		if n > len(b) {
			n = len(b)
		}

		s.writeFrame(b[:n])
		b = b[n:]
	}

	return total, nil
}

func (s *Segmenter) writeFrame(payload []byte) {
	id := s.allocFrameID()

	segLen := 1
	if len(payload) > 0 {
		segLen = (len(payload) + s.segmentCap - 1) / s.segmentCap
	}
	if segLen > 255 {
		// The wire format reserves a single byte for seq_len; a
		// FrameSize/SegmentCapacity pairing that produces more than
		// 255 segments for one frame is a misconfiguration.
		segLen = 255
	}

	for idx := 0; idx < segLen; idx++ {
		start := idx * s.segmentCap
		end := start + s.segmentCap
		if end > len(payload) {
			end = len(payload)
		}

		seg := Segment{
			FrameID: id,
			SeqIdx:  uint8(idx),
			SeqLen:  uint8(segLen),
			Data:    payload[start:end],
		}

		s.segments.ChanIn() <- seg
	}
}

func (s *Segmenter) allocFrameID() ID {
	s.nextFrameIDMtx.Lock()
	defer s.nextFrameIDMtx.Unlock()

	id := s.nextFrameID
	s.nextFrameID++

	return id
}
