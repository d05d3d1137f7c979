package scenarios

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/kilianp07/gatealloc/core/allocation"
	"github.com/kilianp07/gatealloc/core/disruption"
	"github.com/kilianp07/gatealloc/core/engine"
	"github.com/kilianp07/gatealloc/core/model"
)

// Engine is what a scenario drives.
type Engine interface {
	AddGate(g model.Gate) error
	AllocateGate(f model.Flight, preferred []string) (allocation.Result, error)
	HandleDisruption(ev model.DisruptionEvent) (disruption.Result, error)
	GetAssignments(terminal string) []model.GateAssignment
	Stats() engine.Stats
}

// Report collects the outcome of a run.
type Report struct {
	Allocations []allocation.Result
	Disruptions []disruption.Result
	Final       []model.GateAssignment
	Stats       engine.Stats
}

// RegisterGates adds the scenario gates to eng.
func RegisterGates(eng Engine, sc *Scenario) error {
	for _, g := range sc.Gates {
		if err := eng.AddGate(g); err != nil {
			return err
		}
	}
	return nil
}

// Run registers gates, allocates every flight, then applies the disruptions
// in order. Progress is written to w when it is not nil.
func Run(eng Engine, sc *Scenario, w io.Writer) (Report, error) {
	if w == nil {
		w = io.Discard
	}
	var rep Report

	fmt.Fprintf(w, "--- %s: gates ---\n", sc.Name)
	for _, g := range sc.Gates {
		if err := eng.AddGate(g); err != nil {
			return rep, err
		}
		fmt.Fprintf(w, "  [+] %s\n", g)
	}

	fmt.Fprintf(w, "--- %s: allocation ---\n", sc.Name)
	for _, f := range sc.Flights {
		res, err := eng.AllocateGate(f.Flight, sc.PreferredFor(f))
		if err != nil {
			return rep, fmt.Errorf("allocate %s: %w", f.ID, err)
		}
		rep.Allocations = append(rep.Allocations, res)
		if res.Success {
			fmt.Fprintf(w, "  [OK] %s\n", res.Assignment)
		} else {
			fmt.Fprintf(w, "  [!!] %s\n", res.Message)
		}
	}
	fmt.Fprintf(w, "  %s\n", eng.Stats())

	fmt.Fprintf(w, "--- %s: disruptions ---\n", sc.Name)
	for _, ev := range sc.Disruptions {
		res, err := eng.HandleDisruption(ev)
		if err != nil {
			return rep, fmt.Errorf("disruption %s: %w", ev.Type, err)
		}
		rep.Disruptions = append(rep.Disruptions, res)
		fmt.Fprintf(w, "  [!] %s\n      -> %s\n", ev.Type, res.Summary)
		for _, a := range res.Assignments {
			fmt.Fprintf(w, "      -> %s\n", a)
		}
	}

	rep.Final = eng.GetAssignments("")
	sort.Slice(rep.Final, func(i, j int) bool {
		if !rep.Final[i].From.Equal(rep.Final[j].From) {
			return rep.Final[i].From.Before(rep.Final[j].From)
		}
		return rep.Final[i].Flight.ID < rep.Final[j].Flight.ID
	})
	rep.Stats = eng.Stats()

	fmt.Fprintf(w, "--- %s: final assignments ---\n", sc.Name)
	for _, a := range rep.Final {
		fmt.Fprintf(w, "  [>] %s (%s)\n", a, a.Flight.Status)
	}
	fmt.Fprintf(w, "  %s\n", rep.Stats)
	return rep, nil
}

// Check compares rep with exp and reports every mismatch.
func (rep Report) Check(exp Expected) error {
	var errs []error
	allocated := 0
	for _, r := range rep.Allocations {
		if r.Success {
			allocated++
		}
	}
	if allocated != exp.Allocated {
		errs = append(errs, fmt.Errorf("allocated %d flights, want %d", allocated, exp.Allocated))
	}

	var unplaced []string
	for _, r := range rep.Disruptions {
		unplaced = append(unplaced, r.Unplaced...)
	}
	if fmt.Sprint(unplaced) != fmt.Sprint(exp.Unplaced) {
		errs = append(errs, fmt.Errorf("unplaced %v, want %v", unplaced, exp.Unplaced))
	}

	held := make(map[string]string, len(rep.Final))
	for _, a := range rep.Final {
		held[a.Flight.ID] = a.Gate.ID
	}
	for flight, gate := range exp.Assignments {
		if held[flight] != gate {
			errs = append(errs, fmt.Errorf("%s on %q, want %q", flight, held[flight], gate))
		}
	}
	if exp.Assignments != nil && len(held) != len(exp.Assignments) {
		errs = append(errs, fmt.Errorf("%d live assignments, want %d", len(held), len(exp.Assignments)))
	}

	if s := exp.Stats; s != nil {
		want := engine.Stats{Gates: s.Gates, AvailableGates: s.AvailableGates, Assignments: s.Assignments, Disruptions: s.Disruptions}
		if rep.Stats != want {
			errs = append(errs, fmt.Errorf("stats %q, want %q", rep.Stats, want))
		}
	}
	return errors.Join(errs...)
}
