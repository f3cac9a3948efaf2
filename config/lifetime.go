package config

import "time"

type LifetimeCfg struct {
	// MaxAge is the age after which the sweeper removes an entry regardless of read TTLs.
	// Example: "1h".
	MaxAge time.Duration `yaml:"max_age"`

	// Rate limits shard scans per second.
	// Example: 64.
	Rate int `yaml:"rate"`
}

func (cfg *LifetimeCfg) Enabled() bool {
	return cfg != nil
}
