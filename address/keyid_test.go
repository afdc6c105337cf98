package address

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func randPacketKey(t *testing.T) PacketKey {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	return NewPacketKey(priv.PubKey())
}

func TestKeyIDMapperRoundTrip(t *testing.T) {
	m := NewKeyIDMapper()

	key := randPacketKey(t)
	addr := Address{1, 2, 3}

	id, err := m.Register(key, addr)
	require.NoError(t, err)
	require.NotZero(t, id)

	gotKey, ok := m.PacketKeyOf(id)
	require.True(t, ok)
	require.True(t, gotKey.Equal(key))

	gotAddr, ok := m.AddressOf(id)
	require.True(t, ok)
	require.True(t, gotAddr.Equal(addr))

	gotID, ok := m.KeyIDOf(key)
	require.True(t, ok)
	require.Equal(t, id, gotID)

	gotID, ok = m.KeyIDForAddress(addr)
	require.True(t, ok)
	require.Equal(t, id, gotID)
}

func TestKeyIDMapperReRegisterIsIdempotent(t *testing.T) {
	m := NewKeyIDMapper()

	key := randPacketKey(t)
	addr := Address{9}

	id1, err := m.Register(key, addr)
	require.NoError(t, err)

	id2, err := m.Register(key, addr)
	require.NoError(t, err)

	require.Equal(t, id1, id2)
	require.Equal(t, 1, m.Len())
}

func TestKeyIDMapperRejectsRebind(t *testing.T) {
	m := NewKeyIDMapper()

	key := randPacketKey(t)
	addr1 := Address{1}
	addr2 := Address{2}

	_, err := m.Register(key, addr1)
	require.NoError(t, err)

	_, err = m.Register(key, addr2)
	require.Error(t, err)

	otherKey := randPacketKey(t)
	_, err = m.Register(otherKey, addr1)
	require.Error(t, err)
}

func TestPseudonymUniqueness(t *testing.T) {
	p1, err := NewPseudonym()
	require.NoError(t, err)

	p2, err := NewPseudonym()
	require.NoError(t, err)

	require.False(t, p1.Equal(p2))
}
