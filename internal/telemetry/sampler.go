package telemetry

// CacheSource exposes cumulative cache counters.
type CacheSource interface {
	Metrics() (hits, misses, sets, invalidated, swept int64)
	Len() int64
	Mem() int64
}

// FetchSource exposes cumulative coordinator counters.
type FetchSource interface {
	Metrics() (fresh, cached, failed, slow, shared int64)
}

type sampler struct {
	cache CacheSource
	fetch FetchSource
}

func newSampler(c CacheSource, f FetchSource) sampler {
	return sampler{cache: c, fetch: f}
}

// snapshot holds cumulative counters (monotonic).
type snapshot struct {
	hits        uint64
	misses      uint64
	sets        uint64
	invalidated uint64
	swept       uint64

	fresh  uint64
	cached uint64
	failed uint64
	slow   uint64
	shared uint64
}

func (s sampler) snapshot() snapshot {
	hits, misses, sets, invalidated, swept := s.cache.Metrics()

	var fresh, cached, failed, slow, shared int64
	if s.fetch != nil {
		fresh, cached, failed, slow, shared = s.fetch.Metrics()
	}

	return snapshot{
		hits:        uint64(max(hits, 0)),
		misses:      uint64(max(misses, 0)),
		sets:        uint64(max(sets, 0)),
		invalidated: uint64(max(invalidated, 0)),
		swept:       uint64(max(swept, 0)),

		fresh:  uint64(max(fresh, 0)),
		cached: uint64(max(cached, 0)),
		failed: uint64(max(failed, 0)),
		slow:   uint64(max(slow, 0)),
		shared: uint64(max(shared, 0)),
	}
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		hits:        delta(prev.hits, cur.hits),
		misses:      delta(prev.misses, cur.misses),
		sets:        delta(prev.sets, cur.sets),
		invalidated: delta(prev.invalidated, cur.invalidated),
		swept:       delta(prev.swept, cur.swept),

		fresh:  delta(prev.fresh, cur.fresh),
		cached: delta(prev.cached, cur.cached),
		failed: delta(prev.failed, cur.failed),
		slow:   delta(prev.slow, cur.slow),
		shared: delta(prev.shared, cur.shared),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
