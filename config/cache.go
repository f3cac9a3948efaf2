package config

// Cache groups configuration of all query cache subsystems.
// Optional components are disabled by leaving their section nil.
type Cache struct {
	DB DBCfg `yaml:"db"`

	// Fetch configures the cache-or-fetch coordinator.
	Fetch FetchCfg `yaml:"fetch"`

	// Lifetime enables the background sweeper which removes entries older than MaxAge.
	// If nil, entries are never removed by age: staleness is evaluated lazily on read
	// and a stale entry lives until it is overwritten, invalidated or cleared.
	Lifetime *LifetimeCfg `yaml:"lifetime"`

	// Telemetry enables periodic stats logs.
	// If nil, nothing is logged periodically.
	Telemetry *TelemetryCfg `yaml:"telemetry"`

	// Metrics enables Prometheus collectors.
	// If nil, a NoOp recorder is used.
	Metrics *MetricsCfg `yaml:"metrics"`
}
