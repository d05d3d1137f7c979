// Package disruption applies operational events to the allocation store.
//
// Apply runs inside a single write transaction: every mutation and every
// re-placement caused by one event is visible atomically.
package disruption

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/gatealloc/core/allocation"
	"github.com/kilianp07/gatealloc/core/model"
	"github.com/kilianp07/gatealloc/core/store"
)

// ErrUnknownType is returned for DisruptionType values outside the known set.
var ErrUnknownType = model.ErrUnknownDisruptionType

// Result describes what handling an event changed.
type Result struct {
	Acknowledged  bool   `json:"acknowledged"`
	Reassignments int    `json:"reassignments"`
	Summary       string `json:"summary"`
	// Assignments lists assignments created or updated by the event.
	Assignments []model.GateAssignment `json:"assignments,omitempty"`
	// Released lists IDs of assignments removed by the event.
	Released []string           `json:"released,omitempty"`
	Unplaced []string           `json:"unplaced,omitempty"`
	Status   model.FlightStatus `json:"status,omitempty"`
}

// Handler dispatches events by type.
type Handler struct {
	newID func() string
}

// NewHandler returns a handler that names new assignments with newID.
func NewHandler(newID func() string) *Handler {
	return &Handler{newID: newID}
}

// Apply mutates the store for ev and records it in the history. Errors
// wrapping store.ErrConflict come from the store rejecting an insert chosen by
// the allocation algorithm and indicate corrupted state.
func (h *Handler) Apply(tx *store.Tx, ev model.DisruptionEvent) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}
	var (
		res Result
		err error
	)
	//exhaustive:enforce
	switch ev.Type {
	case model.DisruptionDelay:
		res, err = h.delay(tx, ev)
	case model.DisruptionCancellation:
		res, err = h.release(tx, ev, model.StatusCancelled, "cancelled")
	case model.DisruptionDiversion:
		res, err = h.release(tx, ev, model.StatusDiverted, "diverted")
	case model.DisruptionGateUnavailable:
		res, err = h.gateUnavailable(tx, ev)
	case model.DisruptionWeather, model.DisruptionMechanical:
		res = Result{Acknowledged: true, Summary: fmt.Sprintf("%s event recorded for %s", ev.Type, subject(ev))}
	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownType, int(ev.Type))
	}
	if err != nil {
		return Result{}, err
	}
	if err := tx.RecordDisruption(ev); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (h *Handler) delay(tx *store.Tx, ev model.DisruptionEvent) (Result, error) {
	res := Result{Acknowledged: true, Status: model.StatusDelayed}
	prefix := fmt.Sprintf("%s delayed %dmin", ev.AffectedFlightID, ev.DelayMinutes)
	live := tx.AssignmentsForFlight(ev.AffectedFlightID)
	if len(live) == 0 {
		res.Summary = prefix + " - no live assignment"
		return res, nil
	}

	d := ev.Delay()
	parts := make([]string, 0, len(live))
	for _, a := range live {
		shifted := a.Flight.Shift(d)
		shifted.Status = model.StatusDelayed
		w := a.Window().Shift(d)

		if !tx.Conflicts(a.Gate.ID, w, a.ID) {
			updated := a
			updated.Flight = shifted
			updated.From, updated.Until = w.Start, w.End
			if err := tx.UpdateAssignment(updated); err != nil {
				return Result{}, fmt.Errorf("delay %s: %w", a.ID, err)
			}
			res.Assignments = append(res.Assignments, updated)
			parts = append(parts, fmt.Sprintf("%s - window shifted on %s", prefix, a.Gate.ID))
			continue
		}

		if _, err := tx.RemoveAssignment(a.ID); err != nil {
			return Result{}, fmt.Errorf("delay %s: %w", a.ID, err)
		}
		res.Released = append(res.Released, a.ID)
		placed, err := allocation.Place(tx, shifted, []string{a.Gate.ID}, h.newID)
		if err != nil {
			return Result{}, fmt.Errorf("delay %s: %w", a.ID, err)
		}
		if !placed.Success {
			res.Unplaced = append(res.Unplaced, shifted.ID)
			parts = append(parts, prefix+" - no compatible gate, assignment released")
			continue
		}
		res.Reassignments++
		res.Assignments = append(res.Assignments, *placed.Assignment)
		parts = append(parts, fmt.Sprintf("%s - moved %s -> %s", prefix, a.Gate.ID, placed.Assignment.Gate.ID))
	}
	res.Summary = strings.Join(parts, "; ")
	return res, nil
}

// release drops every live assignment of the affected flight.
func (h *Handler) release(tx *store.Tx, ev model.DisruptionEvent, status model.FlightStatus, verb string) (Result, error) {
	res := Result{Acknowledged: true, Status: status}
	for _, a := range tx.AssignmentsForFlight(ev.AffectedFlightID) {
		if _, err := tx.RemoveAssignment(a.ID); err != nil {
			return Result{}, fmt.Errorf("%s %s: %w", verb, a.ID, err)
		}
		res.Released = append(res.Released, a.ID)
	}
	res.Summary = fmt.Sprintf("%s %s - %d gate(s) freed", ev.AffectedFlightID, verb, len(res.Released))
	return res, nil
}

func (h *Handler) gateUnavailable(tx *store.Tx, ev model.DisruptionEvent) (Result, error) {
	gateID := ev.GateID()
	if _, ok := tx.Gate(gateID); !ok {
		return Result{}, fmt.Errorf("gate unavailable: %w: %q", store.ErrUnknownGate, gateID)
	}
	if err := tx.SetGateAvailability(gateID, false); err != nil {
		return Result{}, err
	}

	displaced := tx.AssignmentsOnGate(gateID)
	for _, a := range displaced {
		if _, err := tx.RemoveAssignment(a.ID); err != nil {
			return Result{}, fmt.Errorf("gate unavailable %s: %w", a.ID, err)
		}
	}
	sort.SliceStable(displaced, func(i, j int) bool {
		if !displaced[i].From.Equal(displaced[j].From) {
			return displaced[i].From.Before(displaced[j].From)
		}
		return displaced[i].Flight.ID < displaced[j].Flight.ID
	})

	res := Result{Acknowledged: true}
	for _, a := range displaced {
		res.Released = append(res.Released, a.ID)
		placed, err := allocation.Place(tx, a.Flight, nil, h.newID)
		if err != nil {
			return Result{}, fmt.Errorf("gate unavailable %s: %w", a.Flight.ID, err)
		}
		if !placed.Success {
			res.Unplaced = append(res.Unplaced, a.Flight.ID)
			continue
		}
		res.Reassignments++
		res.Assignments = append(res.Assignments, *placed.Assignment)
	}

	switch {
	case len(displaced) == 0:
		res.Summary = fmt.Sprintf("Gate %s unavailable - no flights displaced", gateID)
	case len(res.Unplaced) == 0:
		res.Summary = fmt.Sprintf("Gate %s unavailable - %d of %d flights re-allocated", gateID, res.Reassignments, len(displaced))
	default:
		res.Summary = fmt.Sprintf("Gate %s unavailable - %d of %d flights re-allocated; %s could not be placed",
			gateID, res.Reassignments, len(displaced), strings.Join(res.Unplaced, ", "))
	}
	return res, nil
}

func subject(ev model.DisruptionEvent) string {
	switch {
	case ev.AffectedFlightID != "":
		return ev.AffectedFlightID
	case ev.AffectedGateID != "":
		return ev.AffectedGateID
	case strings.TrimSpace(ev.Description) != "":
		return strings.TrimSpace(ev.Description)
	default:
		return "airport"
	}
}
