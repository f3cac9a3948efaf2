package cache

import "sync/atomic"

type counters struct {
	hits        atomic.Int64
	misses      atomic.Int64
	sets        atomic.Int64
	invalidated atomic.Int64
	swept       atomic.Int64
}

func newCounters() *counters {
	return &counters{}
}

func (c *counters) snapshot() (hits, misses, sets, invalidated, swept int64) {
	return c.hits.Load(), c.misses.Load(), c.sets.Load(), c.invalidated.Load(), c.swept.Load()
}
