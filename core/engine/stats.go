package engine

import "fmt"

// Stats summarises the engine state.
type Stats struct {
	Gates          int `json:"total_gates"`
	AvailableGates int `json:"available_gates"`
	Assignments    int `json:"active_assignments"`
	// Disruptions counts every handled event, including ones evicted from History.
	Disruptions int `json:"total_disruptions"`
}

func (s Stats) String() string {
	return fmt.Sprintf("Gates: %d/%d available | Assignments: %d | Disruptions: %d",
		s.AvailableGates, s.Gates, s.Assignments, s.Disruptions)
}
