package address

import (
	"fmt"
	"sync"
)

// KeyID is a compact numeric identifier that stands in for a PacketKey
// inside onion packet headers, keeping them small. The mapping between
// KeyIDs, PacketKeys, and on-chain Addresses is injective and partial: not
// every peer the node has ever heard of has been assigned a KeyID, and a
// KeyID, once assigned, never refers to more than one PacketKey/Address
// pair.
type KeyID uint32

// KeyIDMapper is an injective, bidirectional mapping between KeyIDs,
// packet keys, and on-chain addresses. All lookups are O(1) and safe for
// concurrent use; it is written to by the peer/discovery layer and read by
// the onion codec and the ticket processor.
type KeyIDMapper struct {
	mu sync.RWMutex

	nextID KeyID

	idToKey  map[KeyID]PacketKey
	keyToID  map[string]KeyID
	idToAddr map[KeyID]Address
	addrToID map[Address]KeyID
}

// NewKeyIDMapper constructs an empty mapper. KeyID 0 is reserved and never
// assigned, so that the zero value of KeyID can mean "unknown" in callers
// that decode it from the wire.
func NewKeyIDMapper() *KeyIDMapper {
	return &KeyIDMapper{
		nextID:   1,
		idToKey:  make(map[KeyID]PacketKey),
		keyToID:  make(map[string]KeyID),
		idToAddr: make(map[KeyID]Address),
		addrToID: make(map[Address]KeyID),
	}
}

// Register assigns a fresh KeyID to the given (packet key, address) pair,
// or returns the KeyID already assigned to that packet key. It is an error
// to register the same packet key with two different addresses, or the
// same address with two different packet keys.
func (m *KeyIDMapper) Register(key PacketKey, addr Address) (KeyID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keyStr := string(key.Bytes())

	if id, ok := m.keyToID[keyStr]; ok {
		if existing := m.idToAddr[id]; !existing.Equal(addr) {
			return 0, fmt.Errorf("keyid: packet key %s already "+
				"bound to address %s, refusing to rebind to %s",
				key, existing, addr)
		}
		return id, nil
	}

	if existingID, ok := m.addrToID[addr]; ok {
		return 0, fmt.Errorf("keyid: address %s already bound to "+
			"a different packet key (id %d)", addr, existingID)
	}

	id := m.nextID
	m.nextID++

	m.idToKey[id] = key
	m.keyToID[keyStr] = id
	m.idToAddr[id] = addr
	m.addrToID[addr] = id

	return id, nil
}

// PacketKeyOf returns the packet key registered under the given KeyID.
func (m *KeyIDMapper) PacketKeyOf(id KeyID) (PacketKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.idToKey[id]
	return key, ok
}

// AddressOf returns the on-chain address registered under the given KeyID.
func (m *KeyIDMapper) AddressOf(id KeyID) (Address, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addr, ok := m.idToAddr[id]
	return addr, ok
}

// KeyIDOf returns the KeyID registered for the given packet key.
func (m *KeyIDMapper) KeyIDOf(key PacketKey) (KeyID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.keyToID[string(key.Bytes())]
	return id, ok
}

// KeyIDForAddress returns the KeyID registered for the given on-chain
// address.
func (m *KeyIDMapper) KeyIDForAddress(addr Address) (KeyID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.addrToID[addr]
	return id, ok
}

// PacketKeyForAddress is a convenience lookup chaining KeyIDForAddress and
// PacketKeyOf.
func (m *KeyIDMapper) PacketKeyForAddress(addr Address) (PacketKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.addrToID[addr]
	if !ok {
		return PacketKey{}, false
	}

	key, ok := m.idToKey[id]
	return key, ok
}

// AddressForPacketKey is a convenience lookup chaining KeyIDOf and
// AddressOf.
func (m *KeyIDMapper) AddressForPacketKey(key PacketKey) (Address, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.keyToID[string(key.Bytes())]
	if !ok {
		return Address{}, false
	}

	addr, ok := m.idToAddr[id]
	return addr, ok
}

// Len returns the number of registered mappings.
func (m *KeyIDMapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.idToKey)
}
