// Package querycache is a client-side data-access cache with a cache-or-fetch
// coordinator. Instances are created by the application's composition root and
// passed to whoever needs them; there is no package level singleton.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Borislavv/go-ash-query/config"
	"github.com/Borislavv/go-ash-query/internal/cache"
	"github.com/Borislavv/go-ash-query/internal/coordinator"
	"github.com/Borislavv/go-ash-query/internal/metrics"
	"github.com/Borislavv/go-ash-query/internal/shared/cachedtime"
	"github.com/Borislavv/go-ash-query/internal/sweeper"
	"github.com/Borislavv/go-ash-query/internal/telemetry"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	Producer[V any]    = coordinator.Producer[V]
	Result[V any]      = coordinator.Result[V]
	Request[V any]     = coordinator.Request[V]
	BatchResult[V any] = coordinator.BatchResult[V]
	Stats              = cache.Stats
	EntryStats         = cache.EntryStats
)

type Option func(o *options)

type options struct {
	clock      clock.Clock
	registerer prometheus.Registerer
}

// WithClock replaces the wall clock, mostly for simulated time in tests.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithRegisterer registers collectors on reg when metrics are configured.
// Without it a fresh registry is used, never the global one.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

type QueryCache[V any] struct {
	*coordinator.Coordinator[V]
	cache     *cache.Cache[V]
	recorder  metrics.Recorder
	sweeper   sweeper.Sweeper
	telemetry telemetry.Logger
	cls       context.CancelFunc
}

func New[V any](ctx context.Context, cfg *config.Cache, logger *slog.Logger, opts ...Option) (*QueryCache[V], error) {
	if cfg == nil {
		cfg = config.Default()
	} else {
		cfg = cfg.Clone()
		cfg.AdjustConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("query cache config: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	o := &options{clock: clock.New()}
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(ctx)

	var recorder metrics.Recorder = metrics.NoOpRecorder{}
	c := cache.New[V](cfg, cachedtime.RunIfEnabled(ctx, o.clock, cfg), logger)
	if cfg.Metrics.Enabled() {
		if o.registerer == nil {
			o.registerer = prometheus.NewRegistry()
		}
		prom := metrics.NewPrometheus(o.registerer, cfg.Metrics)
		prom.RegisterSize(func() float64 { return float64(c.Len()) })
		recorder = prom
	}

	coord := coordinator.New[V](&cfg.Fetch, c, o.clock, logger, recorder)

	return &QueryCache[V]{
		Coordinator: coord,
		cache:       c,
		recorder:    recorder,
		sweeper:     sweeper.New(ctx, cfg.Lifetime, logger, c),
		telemetry:   telemetry.New(ctx, cfg.Telemetry, logger, o.clock, c, coord),
		cls:         cancel,
	}, nil
}

// Get returns the cached value when it is younger than ttl.
func (q *QueryCache[V]) Get(key string, ttl time.Duration) (V, bool, error) {
	value, hit, err := q.cache.Get(key, ttl)
	switch {
	case err != nil:
	case hit:
		q.recorder.CacheHit()
	default:
		q.recorder.CacheMiss()
	}
	return value, hit, err
}

// Set stores value, cost is the latency of the call which produced it.
func (q *QueryCache[V]) Set(key string, value V, cost time.Duration) {
	q.cache.Set(key, value, cost)
}

// Invalidate removes every key containing pattern as a literal substring.
func (q *QueryCache[V]) Invalidate(pattern string) (int, error) {
	removed, err := q.cache.Invalidate(pattern)
	if err != nil {
		return 0, err
	}
	q.recorder.Invalidated(removed)
	return removed, nil
}

// Del removes exactly one key.
func (q *QueryCache[V]) Del(key string) bool {
	if !q.cache.Del(key) {
		return false
	}
	q.recorder.Invalidated(1)
	return true
}

func (q *QueryCache[V]) Clear()       { q.cache.Clear() }
func (q *QueryCache[V]) Stats() Stats { return q.cache.Stats() }
func (q *QueryCache[V]) Len() int64   { return q.cache.Len() }
func (q *QueryCache[V]) Mem() int64   { return q.cache.Mem() }

// Close stops background workers. It is idempotent.
func (q *QueryCache[V]) Close() error {
	q.cls()
	_ = q.sweeper.Close()
	_ = q.telemetry.Close()
	return nil
}

// Key builds a deterministic cache key: prefix, "_" and the JSON of params.
// encoding/json sorts map keys, so equal params always produce equal keys.
func Key(prefix string, params any) (string, error) {
	if params == nil {
		return prefix, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal key params for %s: %w", prefix, err)
	}
	return prefix + "_" + string(data), nil
}
