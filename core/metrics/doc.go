// Package metrics defines the sinks receiving allocation, disruption and gate
// state records. Sinks like PromSink and InfluxSink live in infra/metrics and
// register themselves with RegisterMetricsSink; NewMetricsSink wraps several
// configured sinks in a MultiSink.
package metrics
