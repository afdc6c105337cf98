package rpc

import (
	"context"
	"errors"
	"sync"
)

var errQueueClosed = errors.New("rpc: nonce queue closed")

// Job is a single chain-affecting call submitted to a NonceQueue.
type Job func() (interface{}, error)

type jobSubmission struct {
	job  Job
	done chan jobResult
}

type jobResult struct {
	value interface{}
	err   error
}

// NonceQueue serializes chain-affecting calls (ticket redemption, channel
// open/close) through a single worker so that nonce assignment never
// races: the original implementation threads exactly this kind of queue
// per chain account to keep outgoing transaction nonces gapless, the same
// property spec.md requires of outgoing ticket indices per channel (see
// the concurrency model's index-allocator note), generalized here from
// per-channel to per-chain-account serialization.
type NonceQueue struct {
	submit chan jobSubmission

	closeOnce sync.Once
	quit      chan struct{}
	wg        sync.WaitGroup
}

// NewNonceQueue constructs a NonceQueue and starts its single worker.
// Callers must call Stop when done.
func NewNonceQueue() *NonceQueue {
	q := &NonceQueue{
		submit: make(chan jobSubmission),
		quit:   make(chan struct{}),
	}

	q.wg.Add(1)
	go q.run()

	return q
}

// Submit enqueues job and blocks until it has run (in submission order,
// one at a time) or ctx is cancelled first. Cancellation does not remove
// the job from the queue once it has been accepted by the worker.
func (q *NonceQueue) Submit(ctx context.Context, job Job) (interface{}, error) {
	s := jobSubmission{job: job, done: make(chan jobResult, 1)}

	select {
	case q.submit <- s:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.quit:
		return nil, errQueueClosed
	}

	select {
	case r := <-s.done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop halts the worker, letting any job currently running finish first.
func (q *NonceQueue) Stop() {
	q.closeOnce.Do(func() { close(q.quit) })
	q.wg.Wait()
}

func (q *NonceQueue) run() {
	defer q.wg.Done()

	for {
		select {
		case s := <-q.submit:
			value, err := s.job()
			s.done <- jobResult{value: value, err: err}

		case <-q.quit:
			return
		}
	}
}
