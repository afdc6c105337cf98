package payload

import "math/big"

// rlpBytes RLP-encodes a byte string per the recursive-length-prefix rules:
// a single byte below 0x80 encodes as itself, a short string gets an 0x80+len
// prefix, and a long string gets a length-of-length prefix starting at 0xb7.
func rlpBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	return rlpWithPrefix(b, 0x80, 0xb7)
}

// rlpList RLP-encodes a list of already-RLP-encoded items, concatenated and
// framed the same way as rlpBytes but with the 0xc0/0xf7 list prefixes.
func rlpList(items ...[]byte) []byte {
	var body []byte
	for _, it := range items {
		body = append(body, it...)
	}
	return rlpWithPrefix(body, 0xc0, 0xf7)
}

func rlpWithPrefix(b []byte, shortBase, longBase byte) []byte {
	if len(b) < 56 {
		out := make([]byte, 0, 1+len(b))
		out = append(out, shortBase+byte(len(b)))
		return append(out, b...)
	}

	lenBytes := minimalBigEndian(uint64(len(b)))
	out := make([]byte, 0, 1+len(lenBytes)+len(b))
	out = append(out, longBase+byte(len(lenBytes)))
	out = append(out, lenBytes...)
	return append(out, b...)
}

// rlpUint RLP-encodes a non-negative integer as its minimal big-endian byte
// string; zero encodes as the empty string, per the RLP spec.
func rlpUint(v *big.Int) []byte {
	if v == nil || v.Sign() == 0 {
		return rlpBytes(nil)
	}
	return rlpBytes(v.Bytes())
}

func rlpUint64(v uint64) []byte {
	return rlpBytes(minimalBigEndian(v))
}

func minimalBigEndian(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var buf [8]byte
	n := 8
	for v > 0 {
		n--
		buf[n] = byte(v)
		v >>= 8
	}
	return buf[n:]
}
