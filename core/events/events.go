package events

import (
	"time"

	"github.com/kilianp07/gatealloc/core/disruption"
	"github.com/kilianp07/gatealloc/core/model"
)

// AllocationEvent is published for every allocation request, successful or not.
type AllocationEvent struct {
	FlightID string
	Aircraft model.AircraftSize
	GateID   string
	Terminal string
	Success  bool
	Score    int
	Latency  time.Duration
	Time     time.Time
}

// DisruptionApplied is published once a disruption has been handled.
type DisruptionApplied struct {
	Event  model.DisruptionEvent `json:"event"`
	Result disruption.Result     `json:"result"`
	Time   time.Time             `json:"applied_at"`
}

// GateStateEvent is published when a gate is registered or toggled.
type GateStateEvent struct {
	Gate model.Gate
	Time time.Time
}
