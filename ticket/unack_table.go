package ticket

import (
	"container/list"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// UnackTicketTableConfig bounds the unacknowledged-ticket table's capacity
// and entry lifetime.
type UnackTicketTableConfig struct {
	// MaxEntries bounds the table; insertion beyond this evicts the
	// oldest entry (by insertion order, not last access).
	MaxEntries int

	// TTL is how long an entry may remain unacknowledged before it is
	// treated as expired (and, for a relayer entry, as a loss).
	TTL time.Duration

	Clock clock.Clock
}

func (c *UnackTicketTableConfig) setDefaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 100_000
	}
	if c.TTL <= 0 {
		c.TTL = 15 * time.Minute
	}
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}
}

type unackEntry struct {
	challenge Challenge
	value     PendingAcknowledgement
	insertedAt time.Time
	elem      *list.Element
}

// UnackTicketTable is the capacity- and TTL-bounded map from acknowledgement
// challenge to pending ticket (component D). Lookup, insert, and remove are
// O(1); all operations are safe for concurrent use from the encode,
// decode, and ack-resolution paths.
type UnackTicketTable struct {
	cfg UnackTicketTableConfig

	mu      sync.Mutex
	entries map[Challenge]*unackEntry
	order   *list.List // front = oldest
}

// NewUnackTicketTable constructs an empty table.
func NewUnackTicketTable(cfg UnackTicketTableConfig) *UnackTicketTable {
	cfg.setDefaults()
	return &UnackTicketTable{
		cfg:     cfg,
		entries: make(map[Challenge]*unackEntry),
		order:   list.New(),
	}
}

// Insert stores a pending acknowledgement under the given challenge,
// evicting the oldest entry first if the table is at capacity. Re-inserting
// under an existing challenge overwrites its value but keeps its original
// position in the eviction order.
func (t *UnackTicketTable) Insert(c Challenge, v PendingAcknowledgement) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked()

	if e, ok := t.entries[c]; ok {
		e.value = v
		return
	}

	if len(t.entries) >= t.cfg.MaxEntries {
		t.evictOldestLocked()
	}

	e := &unackEntry{challenge: c, value: v, insertedAt: t.cfg.Clock.Now()}
	e.elem = t.order.PushBack(e)
	t.entries[c] = e
}

// Remove deletes and returns the entry at the given challenge, if present
// and not expired.
func (t *UnackTicketTable) Remove(c Challenge) (PendingAcknowledgement, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked()

	e, ok := t.entries[c]
	if !ok {
		return nil, false
	}

	t.removeLocked(e)

	return e.value, true
}

// Len returns the number of live (non-expired) entries.
func (t *UnackTicketTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked()

	return len(t.entries)
}

func (t *UnackTicketTable) removeLocked(e *unackEntry) {
	delete(t.entries, e.challenge)
	t.order.Remove(e.elem)
}

func (t *UnackTicketTable) evictOldestLocked() {
	front := t.order.Front()
	if front == nil {
		return
	}
	t.removeLocked(front.Value.(*unackEntry))
}

// expireLocked drops entries whose TTL has elapsed. Since entries are kept
// in insertion order, expiry only needs to scan from the front.
func (t *UnackTicketTable) expireLocked() {
	now := t.cfg.Clock.Now()

	for {
		front := t.order.Front()
		if front == nil {
			return
		}

		e := front.Value.(*unackEntry)
		if now.Sub(e.insertedAt) < t.cfg.TTL {
			return
		}

		t.removeLocked(e)
	}
}
