package rpc

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	postFn func(ctx context.Context, body []byte) TransportOutcome
	calls  int32
}

func (f *fakeTransport) Post(ctx context.Context, body []byte) TransportOutcome {
	atomic.AddInt32(&f.calls, 1)
	return f.postFn(ctx, body)
}

func fastPolicy() PolicyConfig {
	return PolicyConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestRetryBoundsOnPersistent429(t *testing.T) {
	transport := &fakeTransport{
		postFn: func(ctx context.Context, body []byte) TransportOutcome {
			return TransportOutcome{HttpStatus: 429, Body: []byte("{}")}
		},
	}

	client := NewClient(transport, ClientConfig{Policy: fastPolicy()})

	_, err := client.Request(context.Background(), "eth_call", json.RawMessage("[]"))
	require.Error(t, err)

	var backendErr *ErrBackend
	require.ErrorAs(t, err, &backendErr)

	var httpErr *ErrHttp
	require.ErrorAs(t, backendErr.Cause, &httpErr)
	require.Equal(t, 429, httpErr.Status)

	require.EqualValues(t, 4, atomic.LoadInt32(&transport.calls)) // max_retries(3) + 1
}

func TestNoRetryOnUnknownHttpError(t *testing.T) {
	transport := &fakeTransport{
		postFn: func(ctx context.Context, body []byte) TransportOutcome {
			return TransportOutcome{HttpStatus: 404, Body: []byte("{}")}
		},
	}

	client := NewClient(transport, ClientConfig{Policy: fastPolicy()})

	_, err := client.Request(context.Background(), "eth_call", json.RawMessage("[]"))
	require.Error(t, err)

	require.EqualValues(t, 1, atomic.LoadInt32(&transport.calls))

	var backendErr *ErrBackend
	require.ErrorAs(t, err, &backendErr)
	var httpErr *ErrHttp
	require.ErrorAs(t, backendErr.Cause, &httpErr)
	require.Equal(t, 404, httpErr.Status)
}

func TestMalformedBodyWithErrorObjectReclassifiedAsJsonRpc(t *testing.T) {
	// "id" has the wrong JSON type (string instead of number), so
	// unmarshaling the full envelope fails; the narrower probe struct
	// ignores "id" entirely and still finds the error object, so the
	// failure is reclassified as a retryable JsonRpcError rather than a
	// bare SerdeJson failure.
	malformed := []byte(`{"id":"abc","error":{"code":429,"message":"too many requests"}}`)

	transport := &fakeTransport{
		postFn: func(ctx context.Context, body []byte) TransportOutcome {
			return TransportOutcome{HttpStatus: 200, Body: malformed}
		},
	}

	client := NewClient(transport, ClientConfig{Policy: fastPolicy()})

	_, err := client.Request(context.Background(), "eth_call", json.RawMessage("[]"))
	require.Error(t, err)

	var backendErr *ErrBackend
	require.ErrorAs(t, err, &backendErr)

	var rpcErr *ErrJsonRpc
	require.ErrorAs(t, backendErr.Cause, &rpcErr)
	require.Equal(t, 429, rpcErr.Code)
}

func TestSuccessReturnsResult(t *testing.T) {
	transport := &fakeTransport{
		postFn: func(ctx context.Context, body []byte) TransportOutcome {
			return TransportOutcome{HttpStatus: 200, Body: []byte(`{"id":1,"result":"0x1"}`)}
		},
	}

	client := NewClient(transport, ClientConfig{Policy: fastPolicy()})

	result, err := client.Request(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	require.Equal(t, `"0x1"`, string(result))
}

func TestBackoffGeometricGrowthCapped(t *testing.T) {
	p := NewRetryPolicy(PolicyConfig{
		InitialBackoff:     10 * time.Millisecond,
		MaxBackoff:         35 * time.Millisecond,
		BackoffCoefficient: 1.0, // doubling
	})

	require.Equal(t, 10*time.Millisecond, p.Backoff(1))
	require.Equal(t, 20*time.Millisecond, p.Backoff(2))
	require.Equal(t, 35*time.Millisecond, p.Backoff(3)) // would be 40ms, capped
}
