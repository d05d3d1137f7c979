package metrics

import (
	"time"

	"github.com/kilianp07/gatealloc/core/model"
)

// AllocationRecord describes one allocation request.
type AllocationRecord struct {
	FlightID string
	Aircraft model.AircraftSize
	GateID   string
	Terminal string
	Success  bool
	Score    int
	Latency  time.Duration
	Time     time.Time
}

// MetricsSink records allocation outcomes for observability purposes.
type MetricsSink interface {
	RecordAllocation(rec AllocationRecord) error
}

// DisruptionRecord describes one handled disruption.
type DisruptionRecord struct {
	EventID       string
	Type          model.DisruptionType
	FlightID      string
	GateID        string
	Reassignments int
	Released      int
	Unplaced      int
	Time          time.Time
}

// DisruptionRecorder is implemented by sinks that track disruptions.
type DisruptionRecorder interface {
	RecordDisruption(rec DisruptionRecord) error
}

// GateStateRecord is a snapshot of one gate.
type GateStateRecord struct {
	GateID    string
	Terminal  string
	Size      model.AircraftSize
	Available bool
	Time      time.Time
}

// GateStateRecorder is implemented by sinks that track gate availability.
type GateStateRecorder interface {
	RecordGateState(rec GateStateRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocation(AllocationRecord) error { return nil }
func (NopSink) RecordDisruption(DisruptionRecord) error { return nil }
func (NopSink) RecordGateState(GateStateRecord) error   { return nil }
