package ticket

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/hoprnet/hopr-relay-core/address"
)

// LocalSigner implements Signer directly against an in-memory secp256k1
// private key: every Sign call keccak256-hashes msg and produces a
// compact (r, vs) signature, the convention verifySignature checks
// incoming tickets against and payload.SignAndEncode uses for on-chain
// transactions. A deployment backing its chain identity with a remote
// keystore or HSM implements Signer directly instead of using this type.
type LocalSigner struct {
	priv *btcec.PrivateKey
	addr address.Address
}

// NewLocalSigner wraps priv as a Signer for the given on-chain address.
func NewLocalSigner(priv *btcec.PrivateKey, addr address.Address) LocalSigner {
	return LocalSigner{priv: priv, addr: addr}
}

func (s LocalSigner) Address() address.Address { return s.addr }

func (s LocalSigner) ChainKey() []byte { return s.priv.Serialize() }

func (s LocalSigner) Sign(msg []byte) (Signature, error) {
	h := sha3.NewLegacyKeccak256()
	h.Write(msg)
	digest := h.Sum(nil)

	compact := ecdsa.SignCompact(s.priv, digest, true)

	var sig Signature
	copy(sig.R[:], compact[1:33])
	copy(sig.VS[:], compact[33:65])
	// compact[0] is 27 + 4 + recovery id; EIP-2098 carries the id's low
	// bit in the top bit of s.
	if (compact[0]-27)&1 == 1 {
		sig.VS[0] |= 0x80
	}
	return sig, nil
}

// PacketKey returns the packet key a KeyIDMapper should register this
// signer's address under, so other nodes can verify tickets it issues.
func (s LocalSigner) PacketKey() address.PacketKey {
	return address.NewPacketKey(s.priv.PubKey())
}
