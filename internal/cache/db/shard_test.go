package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Borislavv/go-ash-query/internal/cache/db/model"
	"github.com/stretchr/testify/require"
)

func entry(key string, value string, size int64) *model.Entry[string] {
	return model.NewEntry(model.NewKey(key), value, time.Unix(0, 0), 0, size)
}

// TestShard_Set_Insert verifies Set inserts new entries correctly.
func TestShard_Set_Insert(t *testing.T) {
	sh := NewShard[string](0)

	bytesDelta, lenDelta := sh.Set(entry("test", "data", 6))

	require.Equal(t, int64(1), lenDelta, "should increment length")
	require.Equal(t, int64(6), bytesDelta)
	require.Equal(t, int64(1), sh.Len())
	require.Equal(t, int64(6), sh.Weight())
}

// TestShard_Set_Overwrite replaces the entry and reports only the weight difference.
func TestShard_Set_Overwrite(t *testing.T) {
	sh := NewShard[string](0)
	sh.Set(entry("test", "small", 7))

	bytesDelta, lenDelta := sh.Set(entry("test", "larger payload", 16))

	require.Equal(t, int64(0), lenDelta, "should not change length on overwrite")
	require.Equal(t, int64(9), bytesDelta)
	require.Equal(t, int64(1), sh.Len())

	got, ok := sh.Get("test")
	require.True(t, ok)
	require.Equal(t, "larger payload", got.Value())
}

// TestShard_Remove frees weight and reports misses.
func TestShard_Remove(t *testing.T) {
	sh := NewShard[string](0)
	sh.Set(entry("test", "data", 6))

	freed, hit := sh.Remove("test")
	require.True(t, hit)
	require.Equal(t, int64(6), freed)
	require.Equal(t, int64(0), sh.Len())

	_, hit = sh.Remove("test")
	require.False(t, hit)
}

// TestShard_RemoveIf deletes only matching entries.
func TestShard_RemoveIf(t *testing.T) {
	sh := NewShard[string](0)
	sh.Set(entry("keep", "a", 1))
	sh.Set(entry("drop_1", "b", 2))
	sh.Set(entry("drop_2", "c", 3))

	freed, items := sh.RemoveIf(func(e *model.Entry[string]) bool { return e.Key().String() != "keep" })

	require.Equal(t, int64(5), freed)
	require.Equal(t, int64(2), items)
	require.Equal(t, int64(1), sh.Len())
	_, ok := sh.Get("keep")
	require.True(t, ok)
}

// TestShard_Clear empties the shard and resets counters.
func TestShard_Clear(t *testing.T) {
	sh := NewShard[string](0)
	sh.Set(entry("a", "1", 1))
	sh.Set(entry("b", "2", 1))

	freed, items := sh.Clear()

	require.Equal(t, int64(2), freed)
	require.Equal(t, int64(2), items)
	require.Equal(t, int64(0), sh.Len())
	require.Equal(t, int64(0), sh.Weight())
}

// TestShard_Walk_StopsOnFalse stops iterating once the callback returns false.
func TestShard_Walk_StopsOnFalse(t *testing.T) {
	sh := NewShard[string](0)
	for _, k := range []string{"a", "b", "c"} {
		sh.Set(entry(k, k, 1))
	}

	var visited int
	sh.Walk(context.Background(), func(*model.Entry[string]) bool {
		visited++
		return false
	})
	require.Equal(t, 1, visited)
}

// TestShard_Concurrent keeps counters consistent under parallel writers.
func TestShard_Concurrent(t *testing.T) {
	sh := NewShard[string](0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sh.Set(entry(string(rune('a'+i))+"_"+string(rune('a'+j%26)), "v", 1))
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(8*26), sh.Len())
	require.Equal(t, int64(8*26), sh.Weight())
}
