package surb

import (
	"testing"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/stretchr/testify/require"
)

func TestStorePushPopOne(t *testing.T) {
	s := NewStore(2)
	p := address.Pseudonym{1}

	id1 := address.SurbID{1}
	id2 := address.SurbID{2}

	s.Push(p, id1, SURB{Header: []byte("h1")})
	s.Push(p, id2, SURB{Header: []byte("h2")})
	require.Equal(t, 2, s.Len(p))

	gotID, got, ok := s.PopOne(p)
	require.True(t, ok)
	require.Equal(t, id1, gotID)
	require.Equal(t, "h1", string(got.Header))
	require.Equal(t, 1, s.Len(p))
}

func TestStoreEvictsOldestOnOverflow(t *testing.T) {
	s := NewStore(2)
	p := address.Pseudonym{1}

	id1 := address.SurbID{1}
	id2 := address.SurbID{2}
	id3 := address.SurbID{3}

	s.Push(p, id1, SURB{})
	s.Push(p, id2, SURB{})
	s.Push(p, id3, SURB{})

	require.Equal(t, 2, s.Len(p))

	gotID, _, ok := s.PopOne(p)
	require.True(t, ok)
	require.Equal(t, id2, gotID, "oldest entry id1 should have been evicted")
}

func TestPopOneIfHasID(t *testing.T) {
	s := NewStore(4)
	p := address.Pseudonym{1}

	id1 := address.SurbID{1}
	id2 := address.SurbID{2}

	s.Push(p, id1, SURB{})
	s.Push(p, id2, SURB{})

	_, ok := s.PopOneIfHasID(p, id2)
	require.False(t, ok, "id2 is not the head of the ring")

	_, ok = s.PopOneIfHasID(p, id1)
	require.True(t, ok)
	require.Equal(t, 1, s.Len(p))
}

func TestStoreConsumedAtMostOnce(t *testing.T) {
	s := NewStore(4)
	p := address.Pseudonym{1}
	id := address.SurbID{1}

	s.Push(p, id, SURB{})

	_, ok := s.PopOneIfHasID(p, id)
	require.True(t, ok)

	_, ok = s.PopOneIfHasID(p, id)
	require.False(t, ok)
}
