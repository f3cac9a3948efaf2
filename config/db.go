package config

import "time"

type DBCfg struct {
	// Shards is the number of independent map segments. Rounded up to a power of two.
	Shards int `yaml:"shards"`

	// CacheTimeEnabled makes the cache read a clock refreshed every CacheTimeResolution
	// instead of calling time.Now on each access.
	CacheTimeEnabled    bool          `yaml:"cache_time_enabled"`
	CacheTimeResolution time.Duration `yaml:"cache_time_resolution"`
}
