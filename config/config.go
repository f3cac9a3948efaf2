package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Borislavv/go-ash-query/model"
	"gopkg.in/yaml.v3"
)

const (
	DefaultShards              = 64
	DefaultCacheTimeResolution = 10 * time.Millisecond
	DefaultTTL                 = 5 * time.Minute
	DefaultSlowCallThreshold   = time.Second
	DefaultSweepRate           = 16
	DefaultTelemetryInterval   = 5 * time.Second
)

// Default returns a config with every optional subsystem disabled.
func Default() *Cache {
	cfg := &Cache{}
	cfg.AdjustConfig()
	return cfg
}

// Clone copies cfg including its optional sections, so adjusting the copy
// never touches the caller's value.
func (cfg *Cache) Clone() *Cache {
	c := *cfg
	if cfg.Lifetime != nil {
		lifetime := *cfg.Lifetime
		c.Lifetime = &lifetime
	}
	if cfg.Telemetry != nil {
		telemetry := *cfg.Telemetry
		c.Telemetry = &telemetry
	}
	if cfg.Metrics != nil {
		metrics := *cfg.Metrics
		c.Metrics = &metrics
	}
	return &c
}

// AdjustConfig fills zero values with defaults and normalizes derived fields.
func (cfg *Cache) AdjustConfig() {
	if cfg.DB.Shards <= 0 {
		cfg.DB.Shards = DefaultShards
	}
	cfg.DB.Shards = nextPow2(cfg.DB.Shards)
	if cfg.DB.CacheTimeResolution <= 0 {
		cfg.DB.CacheTimeResolution = DefaultCacheTimeResolution
	}

	if cfg.Fetch.DefaultTTL == 0 {
		cfg.Fetch.DefaultTTL = DefaultTTL
	}
	if cfg.Fetch.SlowCallThreshold == 0 {
		cfg.Fetch.SlowCallThreshold = DefaultSlowCallThreshold
	}

	if cfg.Lifetime.Enabled() && cfg.Lifetime.Rate <= 0 {
		cfg.Lifetime.Rate = DefaultSweepRate
	}

	if cfg.Telemetry.Enabled() && cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = DefaultTelemetryInterval
	}
}

// Validate reports values which cannot be coerced into something meaningful.
func (cfg *Cache) Validate() error {
	if cfg.Fetch.DefaultTTL < 0 {
		return fmt.Errorf("fetch.default_ttl: %w", model.ErrNegativeTTL)
	}
	if cfg.Fetch.SlowCallThreshold < 0 {
		return fmt.Errorf("%w: fetch.slow_call_threshold must not be negative", model.ErrConfiguration)
	}
	if cfg.Fetch.BatchConcurrency < 0 {
		return fmt.Errorf("%w: fetch.batch_concurrency must not be negative", model.ErrConfiguration)
	}
	if cfg.Lifetime.Enabled() && cfg.Lifetime.MaxAge <= 0 {
		return fmt.Errorf("%w: lifetime.max_age must be positive", model.ErrConfiguration)
	}
	return nil
}

func LoadConfig(path string) (*Cache, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := &Cache{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.AdjustConfig()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
