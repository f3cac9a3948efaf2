package cache

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Borislavv/go-ash-query/config"
	"github.com/Borislavv/go-ash-query/internal/cache/db"
	"github.com/Borislavv/go-ash-query/internal/cache/db/model"
	"github.com/Borislavv/go-ash-query/internal/shared/bytes"
	querymodel "github.com/Borislavv/go-ash-query/model"
	"github.com/benbjohnson/clock"
)

// Stats is a point-in-time view of the cache content.
type Stats struct {
	Size             int          `json:"size"`
	Entries          []EntryStats `json:"entries"`
	TotalApproxBytes int64        `json:"total_approx_bytes"`
}

type EntryStats struct {
	Key         string        `json:"key"`
	StoredAt    time.Time     `json:"stored_at"`
	Age         time.Duration `json:"age"`
	Cost        time.Duration `json:"cost"`
	ApproxBytes int64         `json:"approx_bytes"`
}

// Cache is a TTL cache with lazy expiry: the TTL is supplied by the reader and
// stale entries stay in place until overwritten, invalidated or cleared.
type Cache[V any] struct {
	db       *db.Map[V]
	clock    clock.Clock
	logger   *slog.Logger
	counters *counters
}

func New[V any](cfg *config.Cache, clk clock.Clock, logger *slog.Logger) *Cache[V] {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache[V]{
		db:       db.NewMap[V](cfg.DB.Shards),
		clock:    clk,
		logger:   logger,
		counters: newCounters(),
	}
}

// Get returns the stored value if it is younger than ttl.
// A zero ttl is always a miss; a negative one is a configuration error.
func (c *Cache[V]) Get(key string, ttl time.Duration) (value V, hit bool, err error) {
	if ttl < 0 {
		return value, false, querymodel.ErrNegativeTTL
	}

	if entry, ok := c.db.Get(model.NewKey(key)); ok && entry.IsFresh(c.now(), ttl) {
		c.counters.hits.Add(1)
		return entry.Value(), true, nil
	}

	c.counters.misses.Add(1)
	return value, false, nil
}

// Set unconditionally overwrites the entry for key.
func (c *Cache[V]) Set(key string, value V, cost time.Duration) {
	c.db.Set(model.NewEntry(model.NewKey(key), value, c.clock.Now(), cost, bytes.ApproxSize(value)))
	c.counters.sets.Add(1)
}

// Del removes exactly one key.
func (c *Cache[V]) Del(key string) bool {
	_, hit := c.db.Remove(model.NewKey(key))
	if hit {
		c.counters.invalidated.Add(1)
	}
	return hit
}

// Invalidate removes every key which contains pattern as a literal substring.
func (c *Cache[V]) Invalidate(pattern string) (int, error) {
	if pattern == "" {
		return 0, querymodel.ErrEmptyPattern
	}

	removed := c.db.RemoveIf(func(e *model.Entry[V]) bool {
		return strings.Contains(e.Key().String(), pattern)
	})
	c.counters.invalidated.Add(removed)

	c.logger.Debug("cache invalidated", "pattern", pattern, "removed", removed)
	return int(removed), nil
}

// Sweep removes entries whose age reached maxAge in the next shard (round-robin).
func (c *Cache[V]) Sweep(maxAge time.Duration) int64 {
	now := c.now()
	removed := c.db.RemoveIfInShard(c.db.NextShard(), func(e *model.Entry[V]) bool {
		return !e.IsFresh(now, maxAge)
	})
	c.counters.swept.Add(removed)
	return removed
}

func (c *Cache[V]) Clear()         { c.db.Clear() }
func (c *Cache[V]) Len() int64     { return c.db.Len() }
func (c *Cache[V]) Mem() int64     { return c.db.Mem() }
func (c *Cache[V]) NumShards() int { return c.db.NumShards() }

// Stats lists every entry sorted by key.
func (c *Cache[V]) Stats() Stats {
	now := c.now()
	stats := Stats{Entries: make([]EntryStats, 0, c.db.Len())}

	c.db.Walk(context.Background(), func(e *model.Entry[V]) bool {
		stats.Entries = append(stats.Entries, EntryStats{
			Key:         e.Key().String(),
			StoredAt:    time.Unix(0, e.StoredAt()),
			Age:         e.Age(now),
			Cost:        e.Cost(),
			ApproxBytes: e.Weight(),
		})
		stats.TotalApproxBytes += e.Weight()
		return true
	})
	stats.Size = len(stats.Entries)

	sort.Slice(stats.Entries, func(i, j int) bool { return stats.Entries[i].Key < stats.Entries[j].Key })
	return stats
}

func (c *Cache[V]) Metrics() (hits, misses, sets, invalidated, swept int64) {
	return c.counters.snapshot()
}

// unixNanoClock is implemented by cachedtime.Clock, which keeps the current time as an atomic int64.
type unixNanoClock interface {
	UnixNano() int64
}

func (c *Cache[V]) now() int64 {
	if clk, ok := c.clock.(unixNanoClock); ok {
		return clk.UnixNano()
	}
	return c.clock.Now().UnixNano()
}
