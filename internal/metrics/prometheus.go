package metrics

import (
	"time"

	"github.com/Borislavv/go-ash-query/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

var _ Recorder = (*Prometheus)(nil)

// Prometheus registers its collectors on the given registerer, never on the global one.
type Prometheus struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	fetches     *prometheus.CounterVec
	latency     prometheus.Histogram
	slowCalls   prometheus.Counter
	invalidated prometheus.Counter
	factory     promauto.Factory
	cfg         *config.MetricsCfg
}

func NewPrometheus(reg prometheus.Registerer, cfg *config.MetricsCfg) *Prometheus {
	if cfg == nil {
		cfg = &config.MetricsCfg{}
	}
	f := promauto.With(reg)
	return &Prometheus{
		cfg:     cfg,
		factory: f,
		hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of lookups served from the cache",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of lookups which had to call the producer",
		}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fetches_total",
			Help:      "Total number of producer calls",
		}, []string{"status"}), // status: success, failed
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of producer calls in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		slowCalls: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "slow_calls_total",
			Help:      "Total number of producer calls above the slow call threshold",
		}),
		invalidated: f.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "invalidated_keys_total",
			Help:      "Total number of keys removed by pattern invalidation",
		}),
	}
}

// RegisterSize exposes the current number of cached entries.
func (p *Prometheus) RegisterSize(fn func() float64) {
	p.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: p.cfg.Namespace,
		Subsystem: p.cfg.Subsystem,
		Name:      "entries",
		Help:      "Number of entries currently held by the cache",
	}, fn)
}

func (p *Prometheus) CacheHit()  { p.hits.Inc() }
func (p *Prometheus) CacheMiss() { p.misses.Inc() }
func (p *Prometheus) SlowCall()  { p.slowCalls.Inc() }

func (p *Prometheus) Fetch(elapsed time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusFailed
	}
	p.fetches.WithLabelValues(status).Inc()
	p.latency.Observe(elapsed.Seconds())
}

func (p *Prometheus) Invalidated(n int) {
	if n > 0 {
		p.invalidated.Add(float64(n))
	}
}
