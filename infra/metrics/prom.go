package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/gatealloc/core/metrics"
)

// PromSink exposes per-terminal and per-gate series fed by the event collector.
type PromSink struct {
	allocations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	disruptions *prometheus.CounterVec
	gates       *prometheus.GaugeVec
}

// NewPromSink registers the sink collectors on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the sink collectors on reg, reusing
// collectors already registered under the same names. A nil reg uses the
// default registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_events_total",
		Help: "Allocation requests by terminal and outcome",
	}, []string{"terminal", "success"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_latency_seconds",
		Help:    "Time spent choosing and inserting an assignment",
		Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
	}, []string{"success"})
	disruptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "disruption_events_total",
		Help: "Handled disruptions by type",
	}, []string{"type"})
	gates := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gate_available",
		Help: "1 when the gate accepts new assignments",
	}, []string{"gate_id", "terminal"})

	var err error
	if allocations, err = register(reg, allocations); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if disruptions, err = register(reg, disruptions); err != nil {
		return nil, err
	}
	if gates, err = register(reg, gates); err != nil {
		return nil, err
	}
	return &PromSink{allocations: allocations, latency: latency, disruptions: disruptions, gates: gates}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAllocation counts the request and observes its latency.
func (s *PromSink) RecordAllocation(rec coremetrics.AllocationRecord) error {
	ok := strconv.FormatBool(rec.Success)
	terminal := rec.Terminal
	if terminal == "" {
		terminal = "none"
	}
	s.allocations.WithLabelValues(terminal, ok).Inc()
	s.latency.WithLabelValues(ok).Observe(rec.Latency.Seconds())
	return nil
}

func (s *PromSink) RecordDisruption(rec coremetrics.DisruptionRecord) error {
	s.disruptions.WithLabelValues(rec.Type.String()).Inc()
	return nil
}

func (s *PromSink) RecordGateState(rec coremetrics.GateStateRecord) error {
	v := 0.0
	if rec.Available {
		v = 1
	}
	s.gates.WithLabelValues(rec.GateID, rec.Terminal).Set(v)
	return nil
}
