// Package coordinator is the single cache-or-fetch entry point: it consults the
// cache, falls back to a caller supplied producer on miss, records latency and
// reports slow calls. Producer failures are never cached nor retried.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/Borislavv/go-ash-query/config"
	"github.com/Borislavv/go-ash-query/internal/cache"
	"github.com/Borislavv/go-ash-query/internal/metrics"
	"github.com/Borislavv/go-ash-query/model"
	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Coordinator[V any] struct {
	cfg      *config.FetchCfg
	cache    *cache.Cache[V]
	clock    clock.Clock
	logger   *slog.Logger
	recorder metrics.Recorder
	sf       singleflight.Group
	counters *counters
}

func New[V any](
	cfg *config.FetchCfg,
	cache *cache.Cache[V],
	clk clock.Clock,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *Coordinator[V] {
	if cfg == nil {
		cfg = &config.Default().Fetch
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	return &Coordinator[V]{
		cfg:      cfg,
		cache:    cache,
		clock:    clk,
		logger:   logger,
		recorder: recorder,
		counters: newCounters(),
	}
}

// ExecuteWithCache returns the cached value for key when it is younger than ttl,
// otherwise calls producer and caches its result. A zero ttl means the configured default.
// The producer error is returned as is.
func (c *Coordinator[V]) ExecuteWithCache(ctx context.Context, key string, ttl time.Duration, producer Producer[V]) (Result[V], error) {
	if producer == nil {
		return Result[V]{}, model.ErrNilProducer
	}
	if ttl == 0 {
		ttl = c.cfg.DefaultTTL
	}

	value, hit, err := c.cache.Get(key, ttl)
	if err != nil {
		return Result[V]{}, err
	}
	if hit {
		c.counters.cached.Add(1)
		c.recorder.CacheHit()
		return Result[V]{Value: value, FromCache: true}, nil
	}
	c.recorder.CacheMiss()

	if c.cfg.SingleFlight {
		return c.fetchShared(ctx, key, producer)
	}
	return c.fetch(ctx, key, producer, true)
}

// ExecuteBatch runs every request independently and concurrently.
// Results keep the input order; one failure never aborts the others.
func (c *Coordinator[V]) ExecuteBatch(ctx context.Context, reqs []Request[V]) []BatchResult[V] {
	results := make([]BatchResult[V], len(reqs))

	var g errgroup.Group
	if c.cfg.BatchConcurrency > 0 {
		g.SetLimit(c.cfg.BatchConcurrency)
	}
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = c.executeOne(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Coordinator[V]) Metrics() (fresh, cached, failed, slow, shared int64) {
	return c.counters.snapshot()
}

func (c *Coordinator[V]) executeOne(ctx context.Context, req Request[V]) BatchResult[V] {
	var (
		res Result[V]
		err error
	)
	switch {
	case req.UseCache:
		res, err = c.ExecuteWithCache(ctx, req.Key, req.TTL, req.Producer)
	case req.Producer == nil:
		err = model.ErrNilProducer
	default:
		res, err = c.fetch(ctx, req.Key, req.Producer, false)
	}

	if err != nil {
		return BatchResult[V]{Err: err}
	}
	return BatchResult[V]{Success: true, Value: res.Value, FromCache: res.FromCache}
}

// shared wraps a result so singleflight never hands back a nil interface.
type shared[V any] struct {
	res Result[V]
}

func (c *Coordinator[V]) fetchShared(ctx context.Context, key string, producer Producer[V]) (Result[V], error) {
	v, err, isShared := c.sf.Do(key, func() (any, error) {
		res, err := c.fetch(ctx, key, producer, true)
		return shared[V]{res: res}, err
	})
	if isShared {
		c.counters.shared.Add(1)
	}
	return v.(shared[V]).res, err
}

func (c *Coordinator[V]) fetch(ctx context.Context, key string, producer Producer[V], store bool) (Result[V], error) {
	start := c.clock.Now()
	value, err := producer(ctx)
	elapsed := c.clock.Since(start)

	c.recorder.Fetch(elapsed, err)
	c.observeSlow(key, elapsed)

	if err != nil {
		c.counters.failed.Add(1)
		c.logger.Error("producer failed", "key", key, "elapsed", elapsed, "err", err)
		return Result[V]{Elapsed: elapsed}, err
	}
	c.counters.fresh.Add(1)

	if store {
		c.cache.Set(key, value, elapsed)
	}
	return Result[V]{Value: value, Elapsed: elapsed}, nil
}

// observeSlow is advisory only.
func (c *Coordinator[V]) observeSlow(key string, elapsed time.Duration) {
	if elapsed <= c.cfg.SlowCallThreshold {
		return
	}
	c.counters.slow.Add(1)
	c.recorder.SlowCall()
	c.logger.Warn("slow call", "key", key, "elapsed", elapsed, "threshold", c.cfg.SlowCallThreshold)
}
