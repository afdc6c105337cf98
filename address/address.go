// Package address contains the identifiers used throughout the relay core:
// on-chain addresses, off-chain packet keys, the compact KeyID mapping
// between them, and the per-conversation pseudonym used by the session
// layer.
package address

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tv42/zbase32"
)

// Size is the length in bytes of an Address.
const Size = 20

// Address is a 20-byte on-chain identifier. Equality is byte-exact.
type Address [Size]byte

// InvalidLengthError is returned when decoding a fixed-width identifier from
// a byte slice of the wrong length.
type InvalidLengthError struct {
	Got, Want int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("address: invalid length: got %d, want %d",
		e.Got, e.Want)
}

// FromBytes constructs an Address from a byte slice, failing if the slice
// isn't exactly Size bytes long.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, &InvalidLengthError{Got: len(b), Want: Size}
	}
	copy(a[:], b)
	return a, nil
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// Equal reports whether two addresses are byte-exact equal.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a[:], other[:])
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a.Equal(Address{})
}

// String renders the address as a 0x-prefixed hex string.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// PacketKey is a compressed secp256k1 public key identifying a node at the
// packet (off-chain) layer. Two packet keys are equal iff their compressed
// serializations match.
type PacketKey struct {
	pub *btcec.PublicKey
}

// NewPacketKey wraps a public key as a PacketKey.
func NewPacketKey(pub *btcec.PublicKey) PacketKey {
	return PacketKey{pub: pub}
}

// ParsePacketKey decodes a compressed secp256k1 public key.
func ParsePacketKey(b []byte) (PacketKey, error) {
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return PacketKey{}, err
	}
	return PacketKey{pub: pub}, nil
}

// Bytes returns the compressed serialization of the packet key.
func (k PacketKey) Bytes() []byte {
	if k.pub == nil {
		return nil
	}
	return k.pub.SerializeCompressed()
}

// PublicKey returns the underlying public key.
func (k PacketKey) PublicKey() *btcec.PublicKey {
	return k.pub
}

// IsZero reports whether the packet key has not been set.
func (k PacketKey) IsZero() bool {
	return k.pub == nil
}

// String renders the packet key using zbase32, matching the teacher's
// preference for zbase32 over base64 for human-typed identifiers.
func (k PacketKey) String() string {
	if k.pub == nil {
		return "<nil>"
	}
	return zbase32.EncodeToString(k.Bytes())
}

// Equal reports whether two packet keys serialize identically.
func (k PacketKey) Equal(other PacketKey) bool {
	if k.pub == nil || other.pub == nil {
		return k.pub == other.pub
	}
	return bytes.Equal(k.Bytes(), other.Bytes())
}
