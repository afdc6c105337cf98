package address

import "github.com/btcsuite/btclog"

// log is the package-level logger used by this package. It defaults to a
// disabled logger so that importing this package has no logging side
// effects until the embedding application wires one up.
var log btclog.Logger

func init() {
	UseLogger(btclog.Disabled)
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}
