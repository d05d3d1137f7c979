package metrics

import "github.com/kilianp07/gatealloc/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr exposes /metrics on a dedicated listener when set.
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
}
