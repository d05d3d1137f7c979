// Package allocation picks a gate for a flight.
//
// Candidate selection is pure: Rank and Select work on gate lists and an
// occupancy predicate. Place runs the same selection against a store
// transaction and inserts the winning assignment.
package allocation

import (
	"fmt"
	"sort"

	"github.com/kilianp07/gatealloc/core/model"
	"github.com/kilianp07/gatealloc/core/store"
)

// Scoring weights. Lower scores win. PreferredBonus stays below
// OversizePenalty so an exact fit always beats an oversized preferred gate.
const (
	OversizePenalty     = 10
	NotPreferredPenalty = 5
	PreferredBonus      = 3
)

// Candidate is a compatible, free gate with its score.
type Candidate struct {
	Gate      model.Gate
	Score     int
	SizeGap   int
	Preferred bool
}

// Result is the outcome of one allocation attempt. Success=false is an
// expected outcome and carries a message instead of an assignment.
type Result struct {
	Success    bool                  `json:"success"`
	Assignment *model.GateAssignment `json:"assignment,omitempty"`
	Message    string                `json:"message"`
	Score      *int                  `json:"score,omitempty"`
}

// Busy reports whether gateID already holds an assignment overlapping w.
type Busy func(gateID string, w model.TimeWindow) bool

// Score rates gate g for an aircraft of the required size. The preference
// term only applies when preferred is non-empty.
func Score(g model.Gate, required model.AircraftSize, preferred map[string]struct{}) int {
	score := OversizePenalty * g.Size.Gap(required)
	if len(preferred) == 0 {
		return score
	}
	if _, ok := preferred[g.ID]; ok {
		return score - PreferredBonus
	}
	return score + NotPreferredPenalty
}

// Rank returns every gate able to take f, best first. Ties are broken by
// ascending gate ID.
func Rank(gates []model.Gate, f model.Flight, preferred []string, busy Busy) []Candidate {
	required := f.AircraftSize()
	w := f.Window()
	pref := preferredSet(preferred)

	var list []Candidate
	for _, g := range gates {
		if !g.Available || !g.CanAccommodate(required) {
			continue
		}
		if busy != nil && busy(g.ID, w) {
			continue
		}
		_, isPref := pref[g.ID]
		list = append(list, Candidate{
			Gate:      g,
			Score:     Score(g, required, pref),
			SizeGap:   g.Size.Gap(required),
			Preferred: isPref,
		})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score < list[j].Score
		}
		return list[i].Gate.ID < list[j].Gate.ID
	})
	return list
}

// Select returns the best candidate, if any.
func Select(gates []model.Gate, f model.Flight, preferred []string, busy Busy) (Candidate, bool) {
	list := Rank(gates, f, preferred, busy)
	if len(list) == 0 {
		return Candidate{}, false
	}
	return list[0], true
}

// Place selects a gate for f inside tx and inserts the assignment. newID
// supplies the assignment ID. A returned error means the store rejected the
// insert and should be treated as corruption by the caller.
func Place(tx *store.Tx, f model.Flight, preferred []string, newID func() string) (Result, error) {
	busy := func(gateID string, w model.TimeWindow) bool {
		return tx.Conflicts(gateID, w, "")
	}
	best, ok := Select(tx.Gates(), f, preferred, busy)
	if !ok {
		return Result{Message: fmt.Sprintf("No compatible gate for %s (%s)", f.ID, f.AircraftType)}, nil
	}
	w := f.Window()
	a := model.GateAssignment{
		ID:     newID(),
		Flight: f,
		Gate:   best.Gate,
		From:   w.Start,
		Until:  w.End,
	}
	if err := tx.InsertAssignment(a); err != nil {
		return Result{}, fmt.Errorf("place %s on %s: %w", f.ID, best.Gate.ID, err)
	}
	score := best.Score
	return Result{
		Success:    true,
		Assignment: &a,
		Message:    fmt.Sprintf("Allocated %s -> %s (score: %d)", f.ID, best.Gate.ID, score),
		Score:      &score,
	}, nil
}

func preferredSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
