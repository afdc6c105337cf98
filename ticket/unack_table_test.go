package ticket

import (
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

func TestUnackTableInsertRemove(t *testing.T) {
	tbl := NewUnackTicketTable(UnackTicketTableConfig{})

	var c Challenge
	c[0] = 1

	tbl.Insert(c, WaitingAsSender{})
	require.Equal(t, 1, tbl.Len())

	v, ok := tbl.Remove(c)
	require.True(t, ok)
	require.IsType(t, WaitingAsSender{}, v)
	require.Equal(t, 0, tbl.Len())

	_, ok = tbl.Remove(c)
	require.False(t, ok)
}

func TestUnackTableEvictsOldestOverCapacity(t *testing.T) {
	tbl := NewUnackTicketTable(UnackTicketTableConfig{MaxEntries: 2})

	var c1, c2, c3 Challenge
	c1[0], c2[0], c3[0] = 1, 2, 3

	tbl.Insert(c1, WaitingAsSender{})
	tbl.Insert(c2, WaitingAsSender{})
	tbl.Insert(c3, WaitingAsSender{})

	require.Equal(t, 2, tbl.Len())

	_, ok := tbl.Remove(c1)
	require.False(t, ok, "oldest entry should have been evicted")

	_, ok = tbl.Remove(c2)
	require.True(t, ok)
	_, ok = tbl.Remove(c3)
	require.True(t, ok)
}

func TestUnackTableExpiresOnTTL(t *testing.T) {
	testClock := clock.NewTestClock(time.Now())

	tbl := NewUnackTicketTable(UnackTicketTableConfig{
		TTL:   100 * time.Millisecond,
		Clock: testClock,
	})

	var c Challenge
	c[0] = 9

	tbl.Insert(c, WaitingAsSender{})
	require.Equal(t, 1, tbl.Len())

	testClock.SetTime(testClock.Now().Add(200 * time.Millisecond))

	require.Equal(t, 0, tbl.Len())

	_, ok := tbl.Remove(c)
	require.False(t, ok)
}
