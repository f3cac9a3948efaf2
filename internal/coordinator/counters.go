package coordinator

import "sync/atomic"

type counters struct {
	fresh  atomic.Int64 // values produced by a successful producer call
	cached atomic.Int64 // values served from the cache
	failed atomic.Int64 // producer errors
	slow   atomic.Int64 // calls above the slow call threshold
	shared atomic.Int64 // results shared by single-flight
}

func newCounters() *counters {
	return &counters{}
}

func (c *counters) snapshot() (fresh, cached, failed, slow, shared int64) {
	return c.fresh.Load(), c.cached.Load(), c.failed.Load(), c.slow.Load(), c.shared.Load()
}
