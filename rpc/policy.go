package rpc

import (
	"strings"
	"time"
)

// RetryAction is the tagged union a RetryPolicy decision produces.
type RetryAction interface {
	isRetryAction()
}

// NoRetry means the caller should return the classified error as-is.
type NoRetry struct{}

func (NoRetry) isRetryAction() {}

// RetryAfter means the caller should sleep d and retry with identical
// params.
type RetryAfter struct {
	Delay time.Duration
}

func (RetryAfter) isRetryAction() {}

// DefaultRetryableJsonRpcCodes are the JSON-RPC error codes treated as
// retryable regardless of message content.
var DefaultRetryableJsonRpcCodes = map[int]bool{
	-32005: true,
	-32016: true,
	429:    true,
}

// DefaultRetryableHttpStatuses are the HTTP status codes treated as
// retryable.
var DefaultRetryableHttpStatuses = map[int]bool{
	429: true,
}

// PolicyConfig parameterizes a RetryPolicy's limits and backoff curve.
type PolicyConfig struct {
	MaxRetries             int
	MaxRetryQueueSize       int
	InitialBackoff          time.Duration
	MaxBackoff              time.Duration
	BackoffCoefficient      float64
	BackoffOnTransportError bool

	RetryableJsonRpcCodes map[int]bool
	RetryableHttpStatuses map[int]bool
}

func (c *PolicyConfig) setDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.MaxRetryQueueSize == 0 {
		c.MaxRetryQueueSize = 100
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.BackoffCoefficient <= 0 {
		c.BackoffCoefficient = 1.0
	}
	if c.RetryableJsonRpcCodes == nil {
		c.RetryableJsonRpcCodes = DefaultRetryableJsonRpcCodes
	}
	if c.RetryableHttpStatuses == nil {
		c.RetryableHttpStatuses = DefaultRetryableHttpStatuses
	}
}

// RetryPolicy classifies a failed attempt and decides whether, and after
// how long, to retry it.
type RetryPolicy struct {
	cfg PolicyConfig
}

// NewRetryPolicy constructs a RetryPolicy, filling in documented defaults.
func NewRetryPolicy(cfg PolicyConfig) *RetryPolicy {
	cfg.setDefaults()
	return &RetryPolicy{cfg: cfg}
}

// Backoff computes backoff_k = min(max_backoff, initial_backoff *
// (1 + backoff_coefficient)^(k-1)) for the k'th retry attempt (k >= 1).
func (p *RetryPolicy) Backoff(k int) time.Duration {
	if k < 1 {
		k = 1
	}

	factor := 1.0
	base := 1.0 + p.cfg.BackoffCoefficient
	for i := 0; i < k-1; i++ {
		factor *= base
	}

	d := time.Duration(float64(p.cfg.InitialBackoff) * factor)
	if d > p.cfg.MaxBackoff {
		d = p.cfg.MaxBackoff
	}
	return d
}

// Decide consults the policy for the given classified error, the number
// of retries already attempted (including this one, per spec: the caller
// increments num_retries before calling Decide), and the current retry
// queue depth.
func (p *RetryPolicy) Decide(err error, numRetries, queueSize int) RetryAction {
	if numRetries > p.cfg.MaxRetries {
		return NoRetry{}
	}
	if queueSize > p.cfg.MaxRetryQueueSize {
		return NoRetry{}
	}

	switch e := err.(type) {
	case *ErrJsonRpc:
		if p.cfg.RetryableJsonRpcCodes[e.Code] || containsRateLimit(e.Message) {
			return RetryAfter{Delay: p.Backoff(numRetries)}
		}
		return NoRetry{}

	case *ErrHttp:
		if p.cfg.RetryableHttpStatuses[e.Status] {
			return RetryAfter{Delay: p.Backoff(numRetries)}
		}
		return NoRetry{}

	case *ErrTransport:
		if p.cfg.BackoffOnTransportError {
			return RetryAfter{Delay: p.Backoff(numRetries)}
		}
		return RetryAfter{Delay: p.cfg.InitialBackoff}

	case *ErrTimeout:
		if p.cfg.BackoffOnTransportError {
			return RetryAfter{Delay: p.Backoff(numRetries)}
		}
		return RetryAfter{Delay: p.cfg.InitialBackoff}

	case *ErrSerdeJson:
		return NoRetry{}

	default:
		return NoRetry{}
	}
}

func containsRateLimit(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "rate limit")
}
