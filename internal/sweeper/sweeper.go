package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/Borislavv/go-ash-query/config"
	"github.com/Borislavv/go-ash-query/internal/shared/rate"
)

type Sweeper interface {
	Metrics() (scans, removed int64)
	Close() error
}

// Target removes entries older than maxAge from one shard per call.
type Target interface {
	Sweep(maxAge time.Duration) int64
	Len() int64
}

// SweepWorker scans one shard per rate tick and removes entries older than MaxAge.
type SweepWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.LifetimeCfg
	target   Target
	logger   *slog.Logger
	jitter   *rate.Jitter
	counters *sweeperCounters
}

func New(ctx context.Context, cfg *config.LifetimeCfg, logger *slog.Logger, target Target) Sweeper {
	if !cfg.Enabled() {
		return NoOpSweeper{}
	}

	ctx, cancel := context.WithCancel(ctx)
	return (&SweepWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		target:   target,
		logger:   logger,
		jitter:   rate.NewJitter(ctx, cfg.Rate),
		counters: newSweeperCounters(),
	}).run()
}

func (w *SweepWorker) Metrics() (scans, removed int64) {
	return w.counters.snapshot()
}

func (w *SweepWorker) Close() error {
	w.cancel()
	return nil
}

func (w *SweepWorker) run() *SweepWorker {
	w.logger.Info("sweeper is running", "max_age", w.cfg.MaxAge, "rate", w.cfg.Rate)

	go func() {
		defer w.logger.Info("sweeper is stopped")
		for {
			select {
			case <-w.ctx.Done():
				return
			case _, ok := <-w.jitter.Chan():
				if !ok {
					return
				}
				w.sweepOnce()
			}
		}
	}()

	return w
}

func (w *SweepWorker) sweepOnce() {
	if w.target.Len() == 0 {
		return
	}
	w.counters.scans.Add(1)
	if removed := w.target.Sweep(w.cfg.MaxAge); removed > 0 {
		w.counters.removed.Add(removed)
	}
}
