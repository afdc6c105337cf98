package payload

import (
	"fmt"
	"math/big"

	"github.com/hoprnet/hopr-relay-core/address"
	"golang.org/x/crypto/sha3"
)

// eip1559TxType is the EIP-2718 transaction type byte for an EIP-1559
// typed envelope (dynamic fee transaction).
const eip1559TxType = 0x02

// ChainSigner produces the raw recoverable ECDSA signature over a
// transaction digest. The node's chain key (the same secp256k1 identity
// ticket.Signer signs tickets with) backs the one real implementation;
// this interface exists so payload's encoding logic stays testable
// without a live key.
type ChainSigner interface {
	Address() address.Address
	SignDigest(digest [32]byte) (r, s *big.Int, recoveryID byte, err error)
}

// unsignedFields returns the EIP-1559 transaction's RLP items in order,
// every field RLP-encoded individually so both the unsigned (for hashing)
// and signed (for broadcast) envelopes share the same construction.
func unsignedFields(tx TxRequest) []byte {
	return rlpList(
		rlpUint(tx.ChainID),
		rlpUint64(tx.Nonce),
		rlpUint(tx.GasTipCap),
		rlpUint(tx.GasFeeCap),
		rlpUint64(tx.GasLimit),
		rlpBytes(tx.To.Bytes()),
		rlpUint(tx.Value),
		rlpBytes(tx.Data),
		rlpList(), // access_list: always empty, this module never needs one
	)
}

// SignAndEncode converts an unsigned TxRequest into an EIP-1559 typed
// envelope, signs its keccak256 digest, and EIP-2718-encodes the signed
// result: the single byte 0x02 followed by the RLP-encoded signed tx list.
func SignAndEncode(tx TxRequest, signer ChainSigner) ([]byte, error) {
	if tx.ChainID == nil {
		return nil, fmt.Errorf("payload: chain id is required to sign")
	}

	unsigned := append([]byte{eip1559TxType}, unsignedFields(tx)...)

	h := sha3.NewLegacyKeccak256()
	h.Write(unsigned)
	var digest [32]byte
	copy(digest[:], h.Sum(nil))

	r, s, recoveryID, err := signer.SignDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("payload: sign digest: %w", err)
	}

	signed := rlpList(
		rlpUint(tx.ChainID),
		rlpUint64(tx.Nonce),
		rlpUint(tx.GasTipCap),
		rlpUint(tx.GasFeeCap),
		rlpUint64(tx.GasLimit),
		rlpBytes(tx.To.Bytes()),
		rlpUint(tx.Value),
		rlpBytes(tx.Data),
		rlpList(),
		rlpUint64(uint64(recoveryID)),
		rlpUint(r),
		rlpUint(s),
	)

	return append([]byte{eip1559TxType}, signed...), nil
}
