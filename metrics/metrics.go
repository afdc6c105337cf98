// Package metrics holds the relay core's process-global prometheus
// instrumentation — the one legitimate piece of global state per the
// concurrency model's otherwise strict "no shared mutable state without a
// queue in front of it" rule. Every other package takes these as plain
// function calls; nothing here blocks or allocates per call beyond what
// the client library itself does.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var framesDiscardedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hopr_relay_frames_discarded_total",
	Help: "counter of frames discarded by the reconstructor, by reason",
}, []string{"reason"})

var frameLateAckCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hopr_relay_frame_late_ack_total",
	Help: "counter of acknowledgements received for a frame already discarded or delivered",
}, []string{})

var ticketsWonCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hopr_relay_tickets_won_total",
	Help: "counter of relayed tickets resolved as a win",
})

var ticketsLostCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hopr_relay_tickets_lost_total",
	Help: "counter of relayed tickets resolved as a loss",
})

var rpcRetriesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hopr_relay_rpc_retries_total",
	Help: "counter of retrying-RPC-client retry attempts, by outcome of the prior attempt",
}, []string{"outcome"})

var rpcCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "hopr_relay_rpc_call_duration_seconds",
	Help: "observed duration of a complete retrying-RPC-client call, including retries",
}, []string{"method"})

var probeRoundTrip = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "hopr_relay_probe_round_trip_seconds",
	Help: "observed ping-to-pong round trip time for a successful probe",
}, []string{"peer"})

// FrameDiscarded records a frame dropped by the reconstructor for the
// given reason (see frame.DiscardReason.String for the label values).
func FrameDiscarded(reason string) {
	framesDiscardedCounter.WithLabelValues(reason).Inc()
}

// FrameLateAck records an acknowledgement that arrived for a frame no
// longer tracked by the reconstructor — accepted silently per spec, but
// still worth counting.
func FrameLateAck() {
	frameLateAckCounter.WithLabelValues().Inc()
}

// TicketWon records a relayed ticket resolving as a win.
func TicketWon() {
	ticketsWonCounter.Inc()
}

// TicketLost records a relayed ticket resolving as a loss.
func TicketLost() {
	ticketsLostCounter.Inc()
}

// RPCRetry records a retrying-RPC-client attempt following a prior
// attempt that failed with outcome (e.g. "timeout", "malformed_body",
// "jsonrpc_error").
func RPCRetry(outcome string) {
	rpcRetriesCounter.WithLabelValues(outcome).Inc()
}

// RPCCallDuration observes the total wall-clock time a retrying RPC call
// took, across every attempt, for the given method name.
func RPCCallDuration(method string, seconds float64) {
	rpcCallDuration.WithLabelValues(method).Observe(seconds)
}

// ProbeRoundTrip observes a successful ping/pong round trip time for peer.
func ProbeRoundTrip(peer string, seconds float64) {
	probeRoundTrip.WithLabelValues(peer).Observe(seconds)
}
