package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestEntry_IsFresh is strictly less-than: age equal to ttl is stale.
func TestEntry_IsFresh(t *testing.T) {
	stored := time.Unix(100, 0)
	e := NewEntry(NewKey("k"), "v", stored, 20*time.Millisecond, 3)

	now := stored.UnixNano()
	require.True(t, e.IsFresh(now, time.Second))
	require.True(t, e.IsFresh(now+int64(999*time.Millisecond), time.Second))
	require.False(t, e.IsFresh(now+int64(time.Second), time.Second))
	require.False(t, e.IsFresh(now, 0), "zero ttl is always a miss")
}

// TestEntry_Accessors returns what was stored.
func TestEntry_Accessors(t *testing.T) {
	stored := time.Unix(100, 0)
	e := NewEntry(NewKey("k"), 42, stored, 20*time.Millisecond, 2)

	require.Equal(t, 42, e.Value())
	require.Equal(t, "k", e.Key().String())
	require.Equal(t, 20*time.Millisecond, e.Cost())
	require.Equal(t, int64(2), e.Weight())
	require.Equal(t, 5*time.Second, e.Age(stored.Add(5*time.Second).UnixNano()))
}

// TestEntry_IsFresh_Nil treats a nil entry as a miss.
func TestEntry_IsFresh_Nil(t *testing.T) {
	var e *Entry[string]
	require.False(t, e.IsFresh(0, time.Hour))
}
