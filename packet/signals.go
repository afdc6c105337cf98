package packet

import (
	"bytes"
	"fmt"

	"github.com/lightningnetwork/lnd/tlv"
)

// Encode serializes Signals as a TLV record stream, the way
// lnwire.CustomRecords encodes extension data: unknown types round-trip
// untouched, so a signal this package doesn't know about still survives a
// decode-then-re-encode.
func (s Signals) Encode() ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}

	records := tlv.MapToRecords(s)
	stream, err := tlv.NewStream(records...)
	if err != nil {
		return nil, fmt.Errorf("packet: signals stream: %w", err)
	}

	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, fmt.Errorf("packet: encode signals: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSignals parses a TLV-encoded signals blob. An empty or nil b
// decodes to an empty Signals.
func DecodeSignals(b []byte) (Signals, error) {
	if len(b) == 0 {
		return nil, nil
	}

	stream, err := tlv.NewStream()
	if err != nil {
		return nil, fmt.Errorf("packet: signals stream: %w", err)
	}

	typeMap, err := stream.DecodeWithParsedTypes(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("packet: decode signals: %w", err)
	}

	out := make(Signals, len(typeMap))
	for k, v := range typeMap {
		out[uint64(k)] = v
	}
	return out, nil
}
