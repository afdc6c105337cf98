// Package ticket implements the probabilistic payment ticket lifecycle:
// the ticket type itself, the bounded unacknowledged-ticket table
// (component D), and the validation/minting/acknowledgement-resolution
// processor (component E).
package ticket

import (
	"fmt"
	"math/big"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
)

// Challenge is the commitment derived from one half-key, used to match a
// forwarded ticket to the acknowledgement that later resolves it.
type Challenge [32]byte

func (c Challenge) String() string {
	return fmt.Sprintf("%x", c[:8])
}

// HalfKey is one half of the shared secret whose combination with its
// counterpart both proves packet receipt and (for relayed tickets)
// determines whether the resulting ticket wins.
type HalfKey [32]byte

// Signature is a compact (r, vs) ECDSA signature, the encoding used for
// on-chain ticket redemption.
type Signature struct {
	R  [32]byte
	VS [32]byte
}

// Ticket is the signed probabilistic payment record embedded in every
// forwarded packet.
type Ticket struct {
	ChannelID      chain.ID
	Amount         *big.Int // must fit in 96 bits
	Index          uint64   // fits in 48 bits
	IndexOffset    uint32   // >= 1; == 1 for non-aggregated tickets
	Epoch          uint32   // fits in 24 bits
	EncodedWinProb uint64   // fits in 56 bits, encodes WinProb() below
	AckChallenge   Challenge
	Signature      Signature

	Issuer address.Address
}

// maxAmount is 2^96 - 1, the largest value that fits in the on-chain
// uint96 amount field.
var maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))

// WinProb decodes the ticket's encoded winning probability back to a float
// in (0, 1]. The encoding is a fixed-point fraction of the maximum 56-bit
// value, mirroring the on-chain representation.
func (t Ticket) WinProb() float64 {
	const maxEncoded = (uint64(1) << 56) - 1
	return float64(t.EncodedWinProb) / float64(maxEncoded)
}

// EncodeWinProb computes the EncodedWinProb field for a given probability
// in (0, 1].
func EncodeWinProb(p float64) uint64 {
	const maxEncoded = (uint64(1) << 56) - 1
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return maxEncoded
	}
	return uint64(p * float64(maxEncoded))
}

// ValidateShape checks the ticket's structural invariants (amount fits in
// uint96, index_offset >= 1, win_prob in (0, 1]) independent of any chain
// state. A Ticket carries no aggregation marker, so index_offset values
// above 1 are accepted here.
func (t Ticket) ValidateShape() error {
	if t.Amount == nil || t.Amount.Sign() < 0 {
		return fmt.Errorf("ticket: amount must be non-negative")
	}
	if t.Amount.Cmp(maxAmount) > 0 {
		return fmt.Errorf("ticket: amount exceeds uint96 range")
	}
	if t.IndexOffset < 1 {
		return fmt.Errorf("ticket: index_offset must be >= 1, got %d",
			t.IndexOffset)
	}
	wp := t.WinProb()
	if wp <= 0 || wp > 1 {
		return fmt.Errorf("ticket: win_prob %v out of range (0, 1]", wp)
	}
	return nil
}
