package rpc

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	goerrors "github.com/go-errors/errors"

	"github.com/hoprnet/hopr-relay-core/metrics"
)

type jsonRpcRequest struct {
	JsonRpc string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type jsonRpcErrorObj struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRpcResponse struct {
	ID     uint64           `json:"id"`
	Result json.RawMessage  `json:"result"`
	Error  *jsonRpcErrorObj `json:"error"`
}

// ClientConfig bounds a Client's retry policy and in-flight queue.
type ClientConfig struct {
	Policy PolicyConfig
}

// Client is the retrying JSON-RPC client (component H).
type Client struct {
	transport Transport
	policy    *RetryPolicy

	nextID    uint64
	queueSize int32
}

// NewClient constructs a Client over the given transport.
func NewClient(transport Transport, cfg ClientConfig) *Client {
	return &Client{
		transport: transport,
		policy:    NewRetryPolicy(cfg.Policy),
	}
}

// Request performs method(params), retrying per the configured policy,
// and returns the raw JSON result on success.
func (c *Client) Request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := atomic.AddUint64(&c.nextID, 1)

	atomic.AddInt32(&c.queueSize, 1)
	defer atomic.AddInt32(&c.queueSize, -1)

	reqBody, err := json.Marshal(jsonRpcRequest{
		JsonRpc: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		// Marshaling our own request struct should never fail; if it does,
		// keep the stack trace around to debug whatever produced params.
		return nil, goerrors.Wrap(err, 1)
	}

	var numRetries int

	for {
		result, classifyErr := c.attempt(ctx, reqBody)
		if classifyErr == nil {
			return result, nil
		}

		numRetries++

		action := c.policy.Decide(classifyErr, numRetries, int(atomic.LoadInt32(&c.queueSize)))

		switch a := action.(type) {
		case RetryAfter:
			log.Debugf("rpc: %s attempt %d failed with %v, retrying after %s",
				method, numRetries, classifyErr, a.Delay)
			metrics.RPCRetry(classifyOutcome(classifyErr))

			select {
			case <-time.After(a.Delay):
			case <-ctx.Done():
				return nil, &ErrBackend{Cause: ctx.Err()}
			}

		case NoRetry:
			return nil, &ErrBackend{Cause: classifyErr}
		}
	}
}

// attempt performs a single POST and classifies the outcome.
func (c *Client) attempt(ctx context.Context, reqBody []byte) (json.RawMessage, error) {
	outcome := c.transport.Post(ctx, reqBody)

	if outcome.TimedOut {
		return nil, &ErrTimeout{}
	}
	if outcome.TransportErr != nil {
		return nil, &ErrTransport{Msg: outcome.TransportErr.Error()}
	}
	if outcome.HttpStatus != 0 && (outcome.HttpStatus < 200 || outcome.HttpStatus >= 300) {
		return nil, &ErrHttp{Status: outcome.HttpStatus}
	}

	var resp jsonRpcResponse
	if err := json.Unmarshal(outcome.Body, &resp); err != nil {
		return nil, reclassifyMalformedBody(outcome.Body, err, c.policy.cfg.RetryableJsonRpcCodes)
	}

	if resp.Error != nil {
		return nil, &ErrJsonRpc{Code: resp.Error.Code, Message: resp.Error.Message}
	}

	return resp.Result, nil
}

// reclassifyMalformedBody implements the spec's step 3: an unparseable
// body whose text still contains a recognisable error object with a
// retryable code is reclassified as a JsonRpcError rather than a bare
// SerdeJson failure.
func reclassifyMalformedBody(body []byte, parseErr error, retryable map[int]bool) error {
	var probe struct {
		Error *jsonRpcErrorObj `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != nil &&
		retryable[probe.Error.Code] {
		return &ErrJsonRpc{Code: probe.Error.Code, Message: probe.Error.Message}
	}

	return &ErrSerdeJson{Msg: strings.TrimSpace(parseErr.Error())}
}
