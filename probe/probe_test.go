package probe

import (
	"sync"
	"testing"
	"time"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []address.Pseudonym
	autoPong *Prober
}

func (s *fakeSender) SendPing(peer address.Address, pseudonym address.Pseudonym, msg Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, pseudonym)
	s.mu.Unlock()

	if s.autoPong != nil {
		s.autoPong.HandlePong(pseudonym, Message{IsPong: true, Nonce: msg.Nonce})
	}

	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	results []sinkResult
	done    chan struct{}
}

type sinkResult struct {
	peer    address.Address
	latency time.Duration
	err     error
}

func newRecordingSink(n int) *recordingSink {
	return &recordingSink{done: make(chan struct{}, n)}
}

func (s *recordingSink) OnFinished(peer address.Address, latency time.Duration, err error) {
	s.mu.Lock()
	s.results = append(s.results, sinkResult{peer, latency, err})
	s.mu.Unlock()
	s.done <- struct{}{}
}

func TestProbeSuccessReportsLatency(t *testing.T) {
	sink := newRecordingSink(1)
	sender := &fakeSender{}

	p := NewProber(Config{Timeout: time.Second}, sender, sink)
	defer p.Stop()
	sender.autoPong = p

	peer := address.Address{1}
	require.NoError(t, p.Ping(peer, 42))

	select {
	case <-sink.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for probe result")
	}

	require.Len(t, sink.results, 1)
	require.NoError(t, sink.results[0].err)
	require.True(t, sink.results[0].peer.Equal(peer))
}

func TestProbeTimeoutReportsErrTimeout(t *testing.T) {
	testClock := clock.NewTestClock(time.Now())
	sink := newRecordingSink(1)
	sender := &fakeSender{} // never pongs back

	p := NewProber(Config{Timeout: 50 * time.Millisecond, Clock: testClock}, sender, sink)
	defer p.Stop()

	peer := address.Address{2}
	require.NoError(t, p.Ping(peer, 7))

	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		testClock.SetTime(testClock.Now().Add(30 * time.Millisecond))
	}

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for probe expiry")
	}

	require.Len(t, sink.results, 1)
	require.Error(t, sink.results[0].err)
	require.IsType(t, &ErrTimeout{}, sink.results[0].err)
}

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	m := Message{IsPong: true, Nonce: 0xdeadbeef}
	decoded, err := DecodeMessage(m.Encode())
	require.NoError(t, err)
	require.Equal(t, m, decoded)
}
