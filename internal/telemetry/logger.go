package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/Borislavv/go-ash-query/config"
	"github.com/Borislavv/go-ash-query/internal/shared/bytes"
	"github.com/benbjohnson/clock"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

// Logs periodically writes per-interval deltas of cache and coordinator counters.
type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.TelemetryCfg
	logger   *slog.Logger
	clock    clock.Clock
	sampler  sampler
	cache    CacheSource
	interval time.Duration
}

func New(
	ctx context.Context,
	cfg *config.TelemetryCfg,
	logger *slog.Logger,
	clk clock.Clock,
	cache CacheSource,
	fetch FetchSource,
) *Logs {
	ctx, cancel := context.WithCancel(ctx)

	var interval time.Duration
	if cfg.Enabled() {
		interval = cfg.Interval
	}
	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		clock:    clk,
		cache:    cache,
		sampler:  newSampler(cache, fetch),
		interval: interval,
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	return nil
}

func (l *Logs) run() *Logs {
	if l.cfg.Enabled() && l.interval > 0 {
		go l.loop()
	}
	return l
}

func (l *Logs) loop() {
	ticker := l.clock.Ticker(l.interval)
	defer ticker.Stop()

	prev := l.sampler.snapshot()
	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			cur := l.sampler.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur

			common := []any{"interval", l.interval.String()}

			l.logger.Info("fetch_coordinator",
				append(common,
					"fresh", int64(d.fresh),
					"cached", int64(d.cached),
					"failed", int64(d.failed),
					"slow", int64(d.slow),
					"shared", int64(d.shared),
				)...,
			)

			l.logger.Info("storage",
				append(common,
					"hits", int64(d.hits),
					"misses", int64(d.misses),
					"sets", int64(d.sets),
					"invalidated", int64(d.invalidated),
					"swept", int64(d.swept),
					"size", bytes.FmtMem(uint64(max(l.cache.Mem(), 0))),
					"entries", l.cache.Len(),
				)...,
			)
		}
	}
}
