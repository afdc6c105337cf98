package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/pipeline"
	"github.com/stretchr/testify/require"
)

// fakeSubmitter is an in-memory Submitter: Submit just records what it was
// handed, and deliver lets a test inject a Delivery as if it arrived off
// the pipeline, so tests control both directions independently.
type fakeSubmitter struct {
	mu  sync.Mutex
	out []pipeline.OutboundRequest

	deliveries chan pipeline.Delivery
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{deliveries: make(chan pipeline.Delivery, 64)}
}

func (f *fakeSubmitter) Submit(ctx context.Context, req pipeline.OutboundRequest) bool {
	f.mu.Lock()
	f.out = append(f.out, req)
	f.mu.Unlock()
	return true
}

func (f *fakeSubmitter) Deliveries() <-chan pipeline.Delivery {
	return f.deliveries
}

func (f *fakeSubmitter) sent() []pipeline.OutboundRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pipeline.OutboundRequest, len(f.out))
	copy(out, f.out)
	return out
}

func (f *fakeSubmitter) deliver(d pipeline.Delivery) {
	f.deliveries <- d
}

func addrFromByte(b byte) address.Address {
	var a address.Address
	a[19] = b
	return a
}

func TestDialerRoutesDeliveryToMatchingDial(t *testing.T) {
	sub := newFakeSubmitter()
	d := NewDialer(sub)
	defer d.Close()

	peer := addrFromByte(7)
	tr, err := d.Dial(peer, 1)
	require.NoError(t, err)
	defer tr.Close()

	sent := sub.sent()
	require.Len(t, sent, 0)

	require.NoError(t, tr.SendDatagram([]byte("ping")))
	require.Len(t, sub.sent(), 1)
	pseudonym := sub.sent()[0].ReplyPseudonym

	sub.deliver(pipeline.Delivery{Sender: pseudonym, Payload: prependTag(1, []byte("pong"))})

	select {
	case payload := <-tr.Datagrams():
		require.Equal(t, "pong", string(payload))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for routed datagram")
	}
}

func TestDialerDropsDeliveryForUnclaimedTag(t *testing.T) {
	sub := newFakeSubmitter()
	d := NewDialer(sub)
	defer d.Close()

	tr, err := d.Dial(addrFromByte(7), 1)
	require.NoError(t, err)
	defer tr.Close()

	pseudonym, err := address.NewPseudonym()
	require.NoError(t, err)
	sub.deliver(pipeline.Delivery{Sender: pseudonym, Payload: prependTag(2, []byte("not for you"))})

	select {
	case <-tr.Datagrams():
		t.Fatal("unexpected datagram routed to the wrong tag")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDialerListenReceivesFromAnySender(t *testing.T) {
	sub := newFakeSubmitter()
	d := NewDialer(sub)
	defer d.Close()

	listener, err := d.Listen(3)
	require.NoError(t, err)
	defer listener.Close()

	for i := byte(1); i <= 2; i++ {
		var pseudonym address.Pseudonym
		pseudonym[0] = i
		sub.deliver(pipeline.Delivery{Sender: pseudonym, Payload: prependTag(3, []byte{i})})
	}

	seen := map[byte]bool{}
	for i := 0; i < 2; i++ {
		select {
		case payload := <-listener.Datagrams():
			require.Len(t, payload, 1)
			seen[payload[0]] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for listener datagram")
		}
	}
	require.True(t, seen[1] && seen[2])
}

func TestDialerListenSendDatagramFails(t *testing.T) {
	sub := newFakeSubmitter()
	d := NewDialer(sub)
	defer d.Close()

	listener, err := d.Listen(9)
	require.NoError(t, err)
	defer listener.Close()

	require.Error(t, listener.SendDatagram([]byte("x")))
}

func TestDialerListenRejectsDuplicateTag(t *testing.T) {
	sub := newFakeSubmitter()
	d := NewDialer(sub)
	defer d.Close()

	_, err := d.Listen(5)
	require.NoError(t, err)

	_, err = d.Listen(5)
	require.Error(t, err)
}

func TestDialerCloseStopsRoutingAndRejectsNewDials(t *testing.T) {
	sub := newFakeSubmitter()
	d := NewDialer(sub)

	require.NoError(t, d.Close())

	_, err := d.Dial(addrFromByte(1), 1)
	require.Error(t, err)

	_, err = d.Listen(1)
	require.Error(t, err)
}
