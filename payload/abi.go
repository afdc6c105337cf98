package payload

import (
	"math/big"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/ticket"
	"golang.org/x/crypto/sha3"
)

// word is one 32-byte ABI encoding slot.
type word [32]byte

// selector is the first four bytes of the keccak256 hash of a function's
// canonical signature, the standard Solidity ABI call-data prefix.
func selector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	digest := h.Sum(nil)

	var out [4]byte
	copy(out[:], digest[:4])
	return out
}

func encodeAddress(a address.Address) word {
	var w word
	copy(w[12:], a.Bytes())
	return w
}

func encodeUint(v *big.Int) word {
	var w word
	if v == nil {
		return w
	}
	b := v.Bytes()
	copy(w[32-len(b):], b)
	return w
}

func encodeUint64(v uint64) word {
	return encodeUint(new(big.Int).SetUint64(v))
}

func encodeBytes32(b [32]byte) word {
	return word(b)
}

func encodeUint8(v uint8) word {
	var w word
	w[31] = v
	return w
}

// encodeDynamicString ABI-encodes a string's tail: a length word followed
// by the content padded up to the next 32-byte boundary.
func encodeDynamicString(s string) []byte {
	content := []byte(s)
	padded := (len(content) + 31) / 32 * 32

	out := make([]byte, 0, 32+padded)
	out = append(out, encodeUint64(uint64(len(content)))[:]...)
	buf := make([]byte, padded)
	copy(buf, content)
	out = append(out, buf...)
	return out
}

func concatWords(ws ...word) []byte {
	out := make([]byte, 0, 32*len(ws))
	for _, w := range ws {
		out = append(out, w[:]...)
	}
	return out
}

// encodeTicketData ABI-encodes HoprChannels.TicketData: each field still
// occupies a full 32-byte word (every ABI value does, regardless of its
// declared width), but the value itself is left-padded to the field's
// fixed width — uint96 for amount, uint48 for index, uint24 for epoch,
// uint56 for encoded win-prob — exactly as channelId/Index/.../EncodedWinProb
// already serialize in ticket.SigningPreimage's signing preimage.
func encodeTicketData(t ticket.Ticket) []byte {
	return concatWords(
		encodeBytes32(t.ChannelID),
		encodeUint(t.Amount),
		encodeUint64(t.Index),
		encodeUint64(uint64(t.IndexOffset)),
		encodeUint64(uint64(t.Epoch)),
		encodeUint64(t.EncodedWinProb),
	)
}

func encodeCompactSignature(sig ticket.Signature) []byte {
	return concatWords(encodeBytes32(sig.R), encodeBytes32(sig.VS))
}

func encodeVRFParameters(w ticket.VRFWitness) []byte {
	return concatWords(
		encodeBytes32(w.Vx), encodeBytes32(w.Vy),
		encodeBytes32(w.S), encodeBytes32(w.H),
		encodeBytes32(w.SBx), encodeBytes32(w.SBy),
		encodeBytes32(w.HVx), encodeBytes32(w.HVy),
	)
}
