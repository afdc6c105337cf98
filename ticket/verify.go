package ticket

import (
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"github.com/hoprnet/hopr-relay-core/address"
)

// verifySignature checks that sig was produced by pub over msg's keccak256
// digest, the same hash-then-sign convention payload.SignAndEncode uses for
// on-chain transactions and the chain key ticket.Signer backs. The compact
// (r, vs) encoding packs a recovery id into s's top bit (EIP-2098); it is
// masked off here since a known public key makes recovery unnecessary.
func verifySignature(pub address.PacketKey, msg []byte, sig Signature) bool {
	if pub.IsZero() {
		return false
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(msg)
	digest := h.Sum(nil)

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig.R[:]); overflow {
		return false
	}

	vs := sig.VS
	vs[0] &^= 0x80
	if overflow := s.SetByteSlice(vs[:]); overflow {
		return false
	}

	return ecdsa.NewSignature(&r, &s).Verify(digest, pub.PublicKey())
}
