package address

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/tv42/zbase32"
)

// PseudonymSize is the length in bytes of a Pseudonym.
const PseudonymSize = 10

// Pseudonym is a random identifier a packet sender chooses per conversation.
// It lets the recipient reply (via SURBs) without learning the sender's
// packet key. A correct sender never reuses a Pseudonym across independent
// sending contexts.
type Pseudonym [PseudonymSize]byte

// NewPseudonym draws a fresh, cryptographically random pseudonym.
func NewPseudonym() (Pseudonym, error) {
	var p Pseudonym
	if _, err := rand.Read(p[:]); err != nil {
		return p, fmt.Errorf("pseudonym: %w", err)
	}
	return p, nil
}

// Bytes returns the pseudonym as a byte slice.
func (p Pseudonym) Bytes() []byte {
	return p[:]
}

// Equal reports whether two pseudonyms are byte-exact equal.
func (p Pseudonym) Equal(other Pseudonym) bool {
	return bytes.Equal(p[:], other[:])
}

// IsZero reports whether the pseudonym is the zero value.
func (p Pseudonym) IsZero() bool {
	return p.Equal(Pseudonym{})
}

// String renders the pseudonym using zbase32.
func (p Pseudonym) String() string {
	return zbase32.EncodeToString(p[:])
}

// SurbID identifies a single SURB within a pseudonym's reply store.
type SurbID [8]byte

// String renders the SURB id using zbase32.
func (s SurbID) String() string {
	return zbase32.EncodeToString(s[:])
}

// SenderID is the pair (pseudonym, surb-id) that identifies who a reply
// packet should be routed back to, and through which stored SURB.
type SenderID struct {
	Pseudonym Pseudonym
	SurbID    SurbID
}

// String renders the sender id as "pseudonym/surb-id".
func (s SenderID) String() string {
	return fmt.Sprintf("%s/%s", s.Pseudonym, s.SurbID)
}
