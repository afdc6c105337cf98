package rpc

import "fmt"

// ErrJsonRpc means the server returned a well-formed JSON-RPC error
// object, or a malformed body was reclassified as one because it
// contained an error object with a retryable code.
type ErrJsonRpc struct {
	Code    int
	Message string
}

func (e *ErrJsonRpc) Error() string {
	return fmt.Sprintf("rpc: json-rpc error %d: %s", e.Code, e.Message)
}

// ErrHttp means the transport completed but returned a non-2xx HTTP
// status.
type ErrHttp struct {
	Status int
}

func (e *ErrHttp) Error() string {
	return fmt.Sprintf("rpc: http error %d", e.Status)
}

// ErrTransport means the transport itself failed (connection refused, DNS
// failure, etc.) before any HTTP response was obtained.
type ErrTransport struct {
	Msg string
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("rpc: transport error: %s", e.Msg)
}

// ErrTimeout means the transport did not complete within its configured
// deadline.
type ErrTimeout struct{}

func (e *ErrTimeout) Error() string { return "rpc: request timed out" }

// ErrSerdeJson means the response body could not be parsed as either a
// JSON-RPC success or error envelope, and did not contain a recognisable
// error object either.
type ErrSerdeJson struct {
	Msg string
}

func (e *ErrSerdeJson) Error() string {
	return fmt.Sprintf("rpc: malformed response body: %s", e.Msg)
}

// ErrBackend wraps the final classified error returned to the caller
// after retries are exhausted or the policy decided against retrying.
type ErrBackend struct {
	Cause error
}

func (e *ErrBackend) Error() string {
	return fmt.Sprintf("rpc: backend error: %v", e.Cause)
}

func (e *ErrBackend) Unwrap() error { return e.Cause }

// classifyOutcome labels an attempt's failure for the rpc_retries metric.
func classifyOutcome(err error) string {
	switch err.(type) {
	case *ErrJsonRpc:
		return "jsonrpc_error"
	case *ErrHttp:
		return "http_error"
	case *ErrTransport:
		return "transport_error"
	case *ErrTimeout:
		return "timeout"
	case *ErrSerdeJson:
		return "malformed_body"
	default:
		return "unknown"
	}
}
