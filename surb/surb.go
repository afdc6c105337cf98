// Package surb implements the Single-Use Reply Block primitive and its
// per-pseudonym storage. A SURB lets a packet's recipient send exactly one
// reply back to the original sender without learning who that sender is.
package surb

import (
	"sync"

	"github.com/hoprnet/hopr-relay-core/address"
)

// SURB is a pre-built onion header plus the opener secret needed to turn a
// plaintext reply into a fully-encoded onion packet. The contents of
// Header and Opener are opaque to this package; they are produced and
// consumed by the packet codec (see the packet package).
type SURB struct {
	Header []byte
	Opener []byte
}

// Opener pairs a SurbID with the SURB a sender built for it, the shape
// returned by PacketEncoder.EncodePacket for forward routing.
type Opener struct {
	ID   address.SurbID
	SURB SURB
}

// DefaultCapacity is the number of SURBs retained per pseudonym before the
// oldest is evicted to make room for a new one.
const DefaultCapacity = 16

// ring is a fixed-capacity, FIFO eviction buffer of SURBs for one
// pseudonym.
type ring struct {
	ids   []address.SurbID
	surbs map[address.SurbID]SURB
	cap   int
}

func newRing(capacity int) *ring {
	return &ring{
		ids:   make([]address.SurbID, 0, capacity),
		surbs: make(map[address.SurbID]SURB, capacity),
		cap:   capacity,
	}
}

func (r *ring) push(id address.SurbID, s SURB) {
	if _, exists := r.surbs[id]; exists {
		r.surbs[id] = s
		return
	}

	if len(r.ids) == r.cap {
		oldest := r.ids[0]
		r.ids = r.ids[1:]
		delete(r.surbs, oldest)
	}

	r.ids = append(r.ids, id)
	r.surbs[id] = s
}

func (r *ring) popOne() (address.SurbID, SURB, bool) {
	if len(r.ids) == 0 {
		return address.SurbID{}, SURB{}, false
	}

	id := r.ids[0]
	r.ids = r.ids[1:]
	s := r.surbs[id]
	delete(r.surbs, id)

	return id, s, true
}

func (r *ring) popOneIfHasID(id address.SurbID) (SURB, bool) {
	if len(r.ids) == 0 || r.ids[0] != id {
		return SURB{}, false
	}

	_, s, _ := r.popOne()
	return s, true
}

func (r *ring) len() int {
	return len(r.ids)
}

// Store is a concurrent, per-pseudonym collection of SURB rings. Push may
// evict the oldest entry for that pseudonym; PopOne and PopOneIfHasID are
// destructive (a SURB is consumed at most once).
type Store struct {
	mu       sync.Mutex
	capacity int
	rings    map[address.Pseudonym]*ring
}

// NewStore creates a SURB store where each pseudonym may hold up to
// capacity outstanding SURBs.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Store{
		capacity: capacity,
		rings:    make(map[address.Pseudonym]*ring),
	}
}

// Push stores a SURB under the given pseudonym and id, evicting the oldest
// outstanding SURB for that pseudonym if the ring is already full.
func (s *Store) Push(p address.Pseudonym, id address.SurbID, surb SURB) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[p]
	if !ok {
		r = newRing(s.capacity)
		s.rings[p] = r
	}

	r.push(id, surb)
}

// PopOne removes and returns an arbitrary (the oldest) outstanding SURB for
// the given pseudonym.
func (s *Store) PopOne(p address.Pseudonym) (address.SurbID, SURB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[p]
	if !ok {
		return address.SurbID{}, SURB{}, false
	}

	id, surb, ok := r.popOne()
	s.evictIfEmpty(p, r)

	return id, surb, ok
}

// PopOneIfHasID removes and returns the SURB for the given pseudonym only
// if it is the oldest (head) entry and matches id exactly.
func (s *Store) PopOneIfHasID(p address.Pseudonym, id address.SurbID) (SURB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[p]
	if !ok {
		return SURB{}, false
	}

	surb, ok := r.popOneIfHasID(id)
	s.evictIfEmpty(p, r)

	return surb, ok
}

// Len returns the number of outstanding SURBs for the given pseudonym.
func (s *Store) Len(p address.Pseudonym) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[p]
	if !ok {
		return 0
	}

	return r.len()
}

// EvictPseudonym purges every outstanding SURB for the given pseudonym,
// e.g. once the conversation it belongs to has been forgotten.
func (s *Store) EvictPseudonym(p address.Pseudonym) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rings, p)
}

func (s *Store) evictIfEmpty(p address.Pseudonym, r *ring) {
	if r.len() == 0 {
		delete(s.rings, p)
	}
}
