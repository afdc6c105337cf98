package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
	"github.com/hoprnet/hopr-relay-core/healthcheck"
	"github.com/hoprnet/hopr-relay-core/packet"
	"github.com/hoprnet/hopr-relay-core/payload"
	"github.com/hoprnet/hopr-relay-core/pipeline"
	"github.com/hoprnet/hopr-relay-core/probe"
	"github.com/hoprnet/hopr-relay-core/rpc"
	"github.com/hoprnet/hopr-relay-core/session"
	"github.com/hoprnet/hopr-relay-core/ticket"
)

// Adapters bundles the concrete backends a deployment supplies: the
// network transport a Socket frames datagrams over, the RPC transport
// a Client issues JSON-RPC calls through, the packet codec pair, the
// on-chain view the ticket processor and payload generator consult, and
// the chain identity that signs tickets and transactions. None of these
// have a construction-only implementation here; a real main() builds
// them from its own configuration (libp2p stream, HTTP client, on-chain
// indexer, keystore, ...) before calling NewNode.
type Adapters struct {
	NetTransport session.Transport
	RPCTransport rpc.Transport
	Encoder      packet.PacketEncoder
	Decoder      packet.PacketDecoder
	Chain        chain.Values
	ChainConfig  chain.Config
	Signer       ticket.Signer
	ChainSigner  payload.ChainSigner
	Self         address.Address
	SafeModule   *address.Address // nil selects Basic payload generation

	// HealthChecks are the liveliness probes the health monitor runs
	// against this deployment's backends (e.g. the chain RPC endpoint).
	// A check failing out its configured attempts calls Shutdown.
	HealthChecks []*healthcheck.Observation
	Shutdown     func(format string, params ...interface{})
}

// Node is the fully wired relay: the packet pipeline plus the session,
// probe, RPC, and payload-generation components built around it.
type Node struct {
	socket    *session.Socket
	pipeline  *pipeline.Pipeline
	prober    *probe.Prober
	rpcClient *rpc.Client
	processor *ticket.Processor
	payload   payload.Generator
	mapper    *address.KeyIDMapper
	health    *healthcheck.Monitor
}

// pingSender adapts the pipeline's Submit queue to the narrow push
// interface probe.Sender expects.
type pingSender struct {
	p *pipeline.Pipeline
}

func (s pingSender) SendPing(peer address.Address, pseudonym address.Pseudonym, msg probe.Message) error {
	ok := s.p.Submit(context.Background(), pipeline.OutboundRequest{
		Routing:        packet.NoAck{Destination: peer},
		Payload:        msg.Encode(),
		ReplyPseudonym: pseudonym,
	})
	if !ok {
		return fmt.Errorf("hopr-relay: probe send dropped, pipeline queue full")
	}
	return nil
}

// NewNode constructs every component in dependency order: key mapper,
// ticket table and processor, packet pipeline, session socket, RPC client,
// payload generator, prober, and health monitor. Nothing is started; call
// Run.
func NewNode(a Adapters, pipelineCfg pipeline.Config, socketCfg session.SocketConfig,
	ackCfg session.AcknowledgementStateConfig, unackCfg ticket.UnackTicketTableConfig,
	procCfg ticket.ProcessorConfig, probeCfg probe.Config, rpcCfg rpc.ClientConfig) (*Node, error) {

	mapper := address.NewKeyIDMapper()

	unack := ticket.NewUnackTicketTable(unackCfg)
	proc := ticket.NewProcessor(procCfg, a.Chain, unack, mapper, a.Signer)

	wireOut := pipelineWireOut{transport: a.NetTransport}

	pl := pipeline.NewPipeline(pipelineCfg, a.Encoder, a.Decoder, wireOut, proc, a.Chain, nil, nil)

	sock, err := session.NewStatefulSocket(a.NetTransport, socketCfg, ackCfg)
	if err != nil {
		return nil, fmt.Errorf("hopr-relay: session socket: %w", err)
	}

	rpcClient := rpc.NewClient(a.RPCTransport, rpcCfg)

	var gen payload.Generator
	if a.SafeModule != nil {
		gen = payload.NewSafe(a.Self, a.ChainConfig, *a.SafeModule)
	} else {
		gen = payload.NewBasic(a.Self, a.ChainConfig)
	}

	prober := probe.NewProber(probeCfg, pingSender{p: pl}, noopStatusSink{})

	var health *healthcheck.Monitor
	if len(a.HealthChecks) > 0 {
		health = healthcheck.NewMonitor(&healthcheck.Config{
			Checks:   a.HealthChecks,
			Shutdown: a.Shutdown,
		})
	}

	return &Node{
		socket:    sock,
		pipeline:  pl,
		prober:    prober,
		rpcClient: rpcClient,
		processor: proc,
		payload:   gen,
		mapper:    mapper,
		health:    health,
	}, nil
}

// Run starts the pipeline and blocks until ctx is cancelled, then tears
// everything down in reverse order.
func (n *Node) Run(ctx context.Context) {
	n.pipeline.Start(ctx)
	defer n.pipeline.Stop()
	defer n.prober.Stop()
	defer n.socket.Close()

	if n.health != nil {
		_ = n.health.Start()
		defer n.health.Stop()
	}

	<-ctx.Done()
}

// pipelineWireOut adapts a session.Transport into the pipeline's WireOut
// sink, ignoring the destination address: the underlying datagram
// transport is already scoped to one peer connection per Socket.
type pipelineWireOut struct {
	transport session.Transport
}

func (w pipelineWireOut) Send(ctx context.Context, peer address.Address, data []byte) error {
	return w.transport.SendDatagram(data)
}

// noopStatusSink discards probe completions. A deployment wanting liveness
// tracking substitutes its own StatusSink (e.g. one updating a peer health
// registry) in place of this.
type noopStatusSink struct{}

func (noopStatusSink) OnFinished(peer address.Address, latency time.Duration, err error) {}
