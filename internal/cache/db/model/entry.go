package model

import "time"

// Entry is an immutable cached value. A newer Set replaces the whole entry,
// so readers holding a pointer never observe a partially written one.
type Entry[V any] struct {
	key      Key
	value    V
	storedAt int64         // unix nano
	cost     time.Duration // latency of the call which produced value
	size     int64         // approx serialized length of value
}

func NewEntry[V any](key Key, value V, storedAt time.Time, cost time.Duration, size int64) *Entry[V] {
	return &Entry[V]{
		key:      key,
		value:    value,
		storedAt: storedAt.UnixNano(),
		cost:     cost,
		size:     size,
	}
}

func (e *Entry[V]) Key() Key                    { return e.key }
func (e *Entry[V]) Value() V                    { return e.value }
func (e *Entry[V]) StoredAt() int64             { return e.storedAt }
func (e *Entry[V]) Cost() time.Duration         { return e.cost }
func (e *Entry[V]) Weight() int64               { return e.size }
func (e *Entry[V]) Age(now int64) time.Duration { return time.Duration(now - e.storedAt) }

// IsFresh reports whether the entry is still valid for the ttl supplied by the reader.
// Staleness is evaluated lazily: a stale entry is never removed here.
func (e *Entry[V]) IsFresh(now int64, ttl time.Duration) bool {
	if e == nil {
		return false
	}
	return now-e.storedAt < ttl.Nanoseconds()
}
