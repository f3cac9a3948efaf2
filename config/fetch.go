package config

import "time"

type FetchCfg struct {
	// DefaultTTL is used when a caller passes a zero ttl.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// SlowCallThreshold: producer calls taking longer are reported as "slow call" events.
	// The event is advisory and never changes the returned value.
	SlowCallThreshold time.Duration `yaml:"slow_call_threshold"`

	// SingleFlight collapses concurrent misses for the same key into one producer call.
	// Disabled by default: every concurrent miss invokes its own producer.
	SingleFlight bool `yaml:"single_flight"`

	// BatchConcurrency bounds how many batch entries run at once. Zero means unbounded.
	BatchConcurrency int `yaml:"batch_concurrency"`
}
