package config

// MetricsCfg configures Prometheus collectors. Names are built as namespace_subsystem_name.
type MetricsCfg struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

func (cfg *MetricsCfg) Enabled() bool {
	return cfg != nil
}
