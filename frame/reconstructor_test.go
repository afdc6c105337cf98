package frame

import (
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

func drainOne(t *testing.T, ch <-chan interface{}, timeout time.Duration) Result {
	t.Helper()

	select {
	case v := <-ch:
		return v.(Result)
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a result")
		return Result{}
	}
}

func TestReconstructorHappyPath(t *testing.T) {
	r := NewReconstructor(ReconstructorConfig{
		Capacity: 4,
		Timeout:  time.Second,
	})
	defer r.Stop()

	require.NoError(t, r.Input(Segment{FrameID: 1, SeqIdx: 1, SeqLen: 2, Data: []byte("world")}))
	require.NoError(t, r.Input(Segment{FrameID: 1, SeqIdx: 0, SeqLen: 2, Data: []byte("hello ")}))

	res := drainOne(t, r.Results(), time.Second)
	require.True(t, res.Ok())
	require.Equal(t, "hello world", string(res.Frame.Payload))
}

func TestReconstructorCapacityEviction(t *testing.T) {
	r := NewReconstructor(ReconstructorConfig{
		Capacity: 1,
		Timeout:  time.Minute,
	})
	defer r.Stop()

	require.NoError(t, r.Input(Segment{FrameID: 1, SeqIdx: 0, SeqLen: 2, Data: []byte("a")}))
	require.NoError(t, r.Input(Segment{FrameID: 2, SeqIdx: 0, SeqLen: 2, Data: []byte("b")}))

	res := drainOne(t, r.Results(), time.Second)
	require.False(t, res.Ok())
	require.Equal(t, FrameDiscarded, res.Err.Reason)
	require.Equal(t, ID(1), res.Err.FrameID)
}

func TestReconstructorTimeout(t *testing.T) {
	testClock := clock.NewTestClock(time.Now())

	r := NewReconstructor(ReconstructorConfig{
		Capacity: 4,
		Timeout:  40 * time.Millisecond,
		Clock:    testClock,
	})
	defer r.Stop()

	require.NoError(t, r.Input(Segment{FrameID: 1, SeqIdx: 0, SeqLen: 2, Data: []byte("a")}))

	testClock.SetTime(testClock.Now().Add(100 * time.Millisecond))

	res := drainOne(t, r.Results(), 2*time.Second)
	require.False(t, res.Ok())
	require.Equal(t, IncompleteFrame, res.Err.Reason)
}

func TestFrameIDWraparound(t *testing.T) {
	var max ID = 1<<32 - 1
	require.True(t, max.Before(0))
	require.False(t, ID(0).Before(max))
}
