package db

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/go-ash-query/internal/cache/db/model"
)

// Shard is an independent segment of the sharded map.
// It keeps per-shard counters read with atomics so global readers can avoid locks.
type Shard[V any] struct {
	sync.RWMutex
	items map[string]*model.Entry[V]

	id  uint64
	mem int64 // total approx weight in bytes (atomic)
	len int64 // number of items (atomic)
}

func NewShard[V any](id uint64) *Shard[V] {
	return &Shard[V]{id: id, items: make(map[string]*model.Entry[V])}
}

func (sh *Shard[V]) ID() uint64    { return sh.id }
func (sh *Shard[V]) Weight() int64 { return atomic.LoadInt64(&sh.mem) }
func (sh *Shard[V]) Len() int64    { return atomic.LoadInt64(&sh.len) }

// Set inserts or overwrites a key. Returns deltas for global aggregations.
func (sh *Shard[V]) Set(new *model.Entry[V]) (bytesDelta int64, lenDelta int64) {
	key := new.Key().String()

	sh.Lock()
	if old, hit := sh.items[key]; hit {
		bytesDelta = new.Weight() - old.Weight()
	} else {
		lenDelta = 1
		bytesDelta = new.Weight()
		atomic.AddInt64(&sh.len, lenDelta)
	}
	sh.items[key] = new
	atomic.AddInt64(&sh.mem, bytesDelta)
	sh.Unlock()
	return
}

// Get reads a value under a shared lock.
func (sh *Shard[V]) Get(key string) (value *model.Entry[V], hit bool) {
	sh.RLock()
	value, hit = sh.items[key]
	sh.RUnlock()
	return
}

// Remove deletes a key under the write lock.
func (sh *Shard[V]) Remove(key string) (freedBytes int64, hit bool) {
	sh.Lock()
	freedBytes, hit = sh.removeUnlocked(key)
	sh.Unlock()
	return
}

// RemoveIf deletes every entry matching fn under a single write lock.
func (sh *Shard[V]) RemoveIf(fn func(e *model.Entry[V]) bool) (freedBytes, items int64) {
	sh.Lock()
	for key, e := range sh.items {
		if fn(e) {
			freed, _ := sh.removeUnlocked(key)
			freedBytes += freed
			items++
		}
	}
	sh.Unlock()
	return
}

func (sh *Shard[V]) removeUnlocked(key string) (freedBytes int64, hit bool) {
	var old *model.Entry[V]
	if old, hit = sh.items[key]; hit {
		delete(sh.items, key)
		freedBytes = old.Weight()
		atomic.AddInt64(&sh.mem, -freedBytes)
		atomic.AddInt64(&sh.len, -1)
	}
	return
}

// Clear removes all entries and returns (freedBytes, itemsRemoved).
func (sh *Shard[V]) Clear() (freedBytes int64, items int64) {
	sh.Lock()
	items = atomic.LoadInt64(&sh.len)
	freedBytes = atomic.LoadInt64(&sh.mem)

	sh.items = make(map[string]*model.Entry[V])

	atomic.StoreInt64(&sh.len, 0)
	atomic.StoreInt64(&sh.mem, 0)
	sh.Unlock()
	return
}

// Walk iterates entries under a shared lock. The callback must be lightweight.
func (sh *Shard[V]) Walk(ctx context.Context, fn func(e *model.Entry[V]) bool) {
	sh.RLock()
	defer sh.RUnlock()
	for _, v := range sh.items {
		select {
		case <-ctx.Done():
			return
		default:
			if !fn(v) {
				return
			}
		}
	}
}
