// Command hopr-relay is the relay node's process entrypoint. It wires the
// already-constructed packet pipeline, session layer, prober, and RPC
// client together and runs them until the process is signalled to stop.
// Flag parsing, configuration file loading, and the concrete chain/
// transport backends a real deployment supplies are out of scope here —
// see node.go's NewNode, which a deployment's own main() calls once it
// has built those adapters from its own configuration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btclog"
	"github.com/hoprnet/hopr-relay-core/pipeline"
)

func main() {
	backend := btclog.NewBackend(os.Stdout)
	log := backend.Logger("RELAY")
	log.SetLevel(btclog.LevelInfo)
	pipeline.UseLogger(log)

	log.Info("hopr-relay: starting")

	node, err := buildFromEnvironment(log)
	if err != nil {
		log.Errorf("hopr-relay: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	node.Run(ctx)
	log.Info("hopr-relay: stopped")
}

// buildFromEnvironment is the single seam a real deployment replaces:
// everything above it is the process lifecycle, everything below it
// (node.go) is pure construction. No flags or config files are read
// here; a production build supplies concrete adapters in their place.
func buildFromEnvironment(log btclog.Logger) (*Node, error) {
	return nil, errNotConfigured{}
}

type errNotConfigured struct{}

func (errNotConfigured) Error() string {
	return "no transport/chain backend configured; construction is wired in node.go " +
		"for a deployment's own main() to call with concrete adapters"
}
