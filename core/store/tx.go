package store

import (
	"fmt"
	"sort"

	"github.com/kilianp07/gatealloc/core/model"
)

// Tx is a handle on the store valid only inside View or Update.
type Tx struct {
	s        *Store
	writable bool
}

// Writable reports whether the transaction holds the exclusive lock.
func (tx *Tx) Writable() bool { return tx.writable }

func (tx *Tx) Gates() []model.Gate {
	out := make([]model.Gate, 0, len(tx.s.gates))
	for _, g := range tx.s.gates {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tx *Tx) Gate(id string) (model.Gate, bool) {
	g, ok := tx.s.gates[id]
	return g, ok
}

// Assignments returns live assignments whose gate is in terminal, or all of
// them when terminal is empty.
func (tx *Tx) Assignments(terminal string) []model.GateAssignment {
	out := make([]model.GateAssignment, 0, len(tx.s.assignments))
	for _, a := range tx.s.assignments {
		if terminal != "" && a.Gate.Terminal != terminal {
			continue
		}
		out = append(out, a)
	}
	sortAssignments(out)
	return out
}

func (tx *Tx) Assignment(id string) (model.GateAssignment, bool) {
	a, ok := tx.s.assignments[id]
	return a, ok
}

func (tx *Tx) AssignmentsOnGate(gateID string) []model.GateAssignment {
	ids := tx.s.byGate[gateID]
	out := make([]model.GateAssignment, 0, len(ids))
	for id := range ids {
		out = append(out, tx.s.assignments[id])
	}
	sortAssignments(out)
	return out
}

func (tx *Tx) AssignmentsForFlight(flightID string) []model.GateAssignment {
	var out []model.GateAssignment
	for _, a := range tx.s.assignments {
		if a.Flight.ID == flightID {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out
}

// Conflicts reports whether w overlaps a live assignment on gateID other than ignoreID.
func (tx *Tx) Conflicts(gateID string, w model.TimeWindow, ignoreID string) bool {
	for id := range tx.s.byGate[gateID] {
		if id == ignoreID {
			continue
		}
		if tx.s.assignments[id].Window().Overlaps(w) {
			return true
		}
	}
	return false
}

func (tx *Tx) AddGate(g model.Gate) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if err := g.Validate(); err != nil {
		return err
	}
	if _, ok := tx.s.gates[g.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateGate, g.ID)
	}
	tx.s.gates[g.ID] = g
	return nil
}

func (tx *Tx) SetGateAvailability(id string, available bool) error {
	if !tx.writable {
		return ErrReadOnly
	}
	g, ok := tx.s.gates[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGate, id)
	}
	g.Available = available
	tx.s.gates[id] = g
	return nil
}

// InsertAssignment adds a live assignment. The gate must be registered and
// the interval must not overlap another assignment on the same gate.
func (tx *Tx) InsertAssignment(a model.GateAssignment) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if _, ok := tx.s.assignments[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAssignment, a.ID)
	}
	if _, ok := tx.s.gates[a.Gate.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGate, a.Gate.ID)
	}
	if tx.Conflicts(a.Gate.ID, a.Window(), "") {
		return fmt.Errorf("%w: %s for %s", ErrConflict, a.Gate.ID, a.Flight.ID)
	}
	tx.s.assignments[a.ID] = a
	ids := tx.s.byGate[a.Gate.ID]
	if ids == nil {
		ids = make(map[string]struct{})
		tx.s.byGate[a.Gate.ID] = ids
	}
	ids[a.ID] = struct{}{}
	return nil
}

// UpdateAssignment replaces an existing assignment with the same ID on the same gate.
func (tx *Tx) UpdateAssignment(a model.GateAssignment) error {
	if !tx.writable {
		return ErrReadOnly
	}
	old, ok := tx.s.assignments[a.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAssignment, a.ID)
	}
	if old.Gate.ID != a.Gate.ID {
		return fmt.Errorf("assignment %s cannot change gate in place", a.ID)
	}
	if tx.Conflicts(a.Gate.ID, a.Window(), a.ID) {
		return fmt.Errorf("%w: %s for %s", ErrConflict, a.Gate.ID, a.Flight.ID)
	}
	tx.s.assignments[a.ID] = a
	return nil
}

func (tx *Tx) RemoveAssignment(id string) (model.GateAssignment, error) {
	if !tx.writable {
		return model.GateAssignment{}, ErrReadOnly
	}
	a, ok := tx.s.assignments[id]
	if !ok {
		return model.GateAssignment{}, fmt.Errorf("%w: %s", ErrUnknownAssignment, id)
	}
	delete(tx.s.assignments, id)
	if ids := tx.s.byGate[a.Gate.ID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(tx.s.byGate, a.Gate.ID)
		}
	}
	return a, nil
}

// RecordDisruption appends ev to the history, evicting the oldest entry when full.
func (tx *Tx) RecordDisruption(ev model.DisruptionEvent) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.s.disruptions++
	if len(tx.s.history) >= tx.s.historyLimit {
		copy(tx.s.history, tx.s.history[1:])
		tx.s.history = tx.s.history[:len(tx.s.history)-1]
	}
	tx.s.history = append(tx.s.history, ev)
	return nil
}

func (tx *Tx) History() []model.DisruptionEvent {
	return append([]model.DisruptionEvent(nil), tx.s.history...)
}

// Counts summarises the store content.
type Counts struct {
	Gates          int
	AvailableGates int
	Assignments    int
	Disruptions    int
}

func (tx *Tx) Counts() Counts {
	c := Counts{Gates: len(tx.s.gates), Assignments: len(tx.s.assignments), Disruptions: tx.s.disruptions}
	for _, g := range tx.s.gates {
		if g.Available {
			c.AvailableGates++
		}
	}
	return c
}
