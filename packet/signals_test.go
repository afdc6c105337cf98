package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignalsRoundTrip(t *testing.T) {
	s := Signals{
		1: []byte("v1"),
		2: []byte{0x01, 0x02, 0x03},
	}

	b, err := s.Encode()
	require.NoError(t, err)
	require.NotEmpty(t, b)

	decoded, err := DecodeSignals(b)
	require.NoError(t, err)
	require.Equal(t, s, decoded)
}

func TestSignalsEncodeEmptyIsNil(t *testing.T) {
	b, err := Signals(nil).Encode()
	require.NoError(t, err)
	require.Empty(t, b)

	decoded, err := DecodeSignals(nil)
	require.NoError(t, err)
	require.Empty(t, decoded)
}
