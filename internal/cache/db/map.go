// Package db implements a sharded concurrent map of cache entries with
// precise global counters. Shards are picked by the xxh3 hash of the key;
// each shard owns one RWMutex, so every operation is atomic per key.
package db

import (
	"context"
	"sync/atomic"

	"github.com/Borislavv/go-ash-query/internal/cache/db/model"
)

// Map is a sharded concurrent map with precise global counters.
type Map[V any] struct {
	len  int64  // aggregated number of items (atomic)
	mem  int64  // aggregated approx size in bytes (atomic)
	iter uint64 // round‑robin cursor for NextShard()

	mask   uint64
	shards []*Shard[V]
}

// NewMap creates the map. numShards must be a power of two (config.AdjustConfig guarantees it).
func NewMap[V any](numShards int) *Map[V] {
	if numShards <= 0 || numShards&(numShards-1) != 0 {
		numShards = 1
	}
	m := &Map[V]{mask: uint64(numShards - 1), shards: make([]*Shard[V], numShards)}
	for id := range m.shards {
		m.shards[id] = NewShard[V](uint64(id))
	}
	return m
}

// Set inserts/overwrites a value and adjusts global counters via per‑shard deltas.
func (m *Map[V]) Set(value *model.Entry[V]) {
	bytesDelta, lenDelta := m.Shard(value.Key()).Set(value)
	if bytesDelta != 0 {
		atomic.AddInt64(&m.mem, bytesDelta)
	}
	if lenDelta != 0 {
		atomic.AddInt64(&m.len, lenDelta)
	}
}

func (m *Map[V]) Get(key model.Key) (value *model.Entry[V], ok bool) {
	return m.Shard(key).Get(key.String())
}

// Remove deletes a key and adjusts global counters.
func (m *Map[V]) Remove(key model.Key) (freedBytes int64, hit bool) {
	freedBytes, hit = m.Shard(key).Remove(key.String())
	if hit {
		atomic.AddInt64(&m.len, -1)
		atomic.AddInt64(&m.mem, -freedBytes)
	}
	return
}

// RemoveIf deletes entries matching fn across all shards, one shard lock at a time.
func (m *Map[V]) RemoveIf(fn func(e *model.Entry[V]) bool) (removed int64) {
	for _, sh := range m.shards {
		removed += m.RemoveIfInShard(sh, fn)
	}
	return removed
}

// RemoveIfInShard is RemoveIf limited to one shard.
func (m *Map[V]) RemoveIfInShard(sh *Shard[V], fn func(e *model.Entry[V]) bool) int64 {
	freedBytes, items := sh.RemoveIf(fn)
	if items != 0 {
		atomic.AddInt64(&m.len, -items)
		atomic.AddInt64(&m.mem, -freedBytes)
	}
	return items
}

// Walk applies fn to every entry, shard by shard, until fn returns false or ctx is done.
func (m *Map[V]) Walk(ctx context.Context, fn func(e *model.Entry[V]) bool) {
	proceed := true
	for _, sh := range m.shards {
		if ctx.Err() != nil || !proceed {
			return
		}
		sh.Walk(ctx, func(e *model.Entry[V]) bool {
			proceed = fn(e)
			return proceed
		})
	}
}

// Clear wipes all shards and fixes global counters.
func (m *Map[V]) Clear() {
	for _, sh := range m.shards {
		freedBytes, items := sh.Clear()
		if freedBytes != 0 {
			atomic.AddInt64(&m.mem, -freedBytes)
		}
		if items != 0 {
			atomic.AddInt64(&m.len, -items)
		}
	}
}

func (m *Map[V]) Shard(key model.Key) *Shard[V] { return m.shards[key.Value()&m.mask] }
func (m *Map[V]) NextShard() *Shard[V]           { return m.shards[atomic.AddUint64(&m.iter, 1)&m.mask] }
func (m *Map[V]) NumShards() int                 { return len(m.shards) }
func (m *Map[V]) Len() int64                     { return atomic.LoadInt64(&m.len) }
func (m *Map[V]) Mem() int64                     { return atomic.LoadInt64(&m.mem) }
