package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	allocationsTotal   *prometheus.CounterVec
	allocationScore    prometheus.Histogram
	disruptionsTotal   *prometheus.CounterVec
	reassignmentsTotal prometheus.Counter
	unplacedTotal      prometheus.Counter
	liveAssignments    prometheus.Gauge
	availableGates     prometheus.Gauge
	operationDuration  *prometheus.HistogramVec
)

func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Gauge, prometheus.Gauge, *prometheus.HistogramVec) {
	alloc := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_allocations_total",
		Help: "Allocation requests by outcome",
	}, []string{"outcome"})
	score := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gate_allocation_score",
		Help:    "Score of the chosen gate, lower is better",
		Buckets: []float64{-3, 0, 2, 5, 7, 10, 15, 20, 25},
	})
	disr := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_disruptions_total",
		Help: "Handled disruptions by type",
	}, []string{"type"})
	reas := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_reassignments_total",
		Help: "Flights moved to another gate by disruption handling",
	})
	unpl := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_unplaced_flights_total",
		Help: "Flights left without a gate by disruption handling",
	})
	live := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gate_live_assignments",
		Help: "Live gate assignments",
	})
	avail := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gate_available_gates",
		Help: "Gates accepting new assignments",
	})
	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gate_operation_duration_seconds",
		Help:    "Engine operation latency including lock wait",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
	}, []string{"operation"})
	return alloc, score, disr, reas, unpl, live, avail, dur
}

func init() {
	allocationsTotal, allocationScore, disruptionsTotal, reassignmentsTotal, unplacedTotal, liveAssignments, availableGates, operationDuration = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on reg, or on the default
// registerer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(allocationsTotal, allocationScore, disruptionsTotal, reassignmentsTotal,
		unplacedTotal, liveAssignments, availableGates, operationDuration)
}

// ResetMetrics recreates the collectors for tests and registers them on reg
// when it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	allocationsTotal, allocationScore, disruptionsTotal, reassignmentsTotal, unplacedTotal, liveAssignments, availableGates, operationDuration = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
