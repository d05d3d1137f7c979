package allocation

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/gatealloc/core/model"
)

// GateUtilization is the occupied share of one gate over a report window.
type GateUtilization struct {
	GateID   string        `json:"gate_id"`
	Terminal string        `json:"terminal"`
	Occupied time.Duration `json:"occupied_ns"`
	Fraction float64       `json:"fraction"`
}

// UtilizationReport aggregates gate occupancy over [From, To).
type UtilizationReport struct {
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
	Gates      []GateUtilization  `json:"gates"`
	Mean       float64            `json:"mean"`
	StdDev     float64            `json:"std_dev"`
	Min        float64            `json:"min"`
	Max        float64            `json:"max"`
	ByTerminal map[string]float64 `json:"by_terminal"`
}

// Utilization computes per-gate occupied fractions over bounds.
func Utilization(gates []model.Gate, assignments []model.GateAssignment, bounds model.TimeWindow) (UtilizationReport, error) {
	span := bounds.Duration()
	if span <= 0 {
		return UtilizationReport{}, fmt.Errorf("utilization window %s - %s is empty", bounds.Start, bounds.End)
	}
	occupied := make(map[string]time.Duration, len(gates))
	for _, a := range assignments {
		w := a.Window()
		if !w.Overlaps(bounds) {
			continue
		}
		occupied[a.Gate.ID] += w.Clip(bounds).Duration()
	}

	rep := UtilizationReport{From: bounds.Start, To: bounds.End, ByTerminal: make(map[string]float64)}
	fractions := make([]float64, 0, len(gates))
	perTerminal := make(map[string][]float64)
	for _, g := range gates {
		frac := float64(occupied[g.ID]) / float64(span)
		rep.Gates = append(rep.Gates, GateUtilization{
			GateID:   g.ID,
			Terminal: g.Terminal,
			Occupied: occupied[g.ID],
			Fraction: frac,
		})
		fractions = append(fractions, frac)
		perTerminal[g.Terminal] = append(perTerminal[g.Terminal], frac)
	}
	sort.Slice(rep.Gates, func(i, j int) bool { return rep.Gates[i].GateID < rep.Gates[j].GateID })

	if len(fractions) == 0 {
		return rep, nil
	}
	if len(fractions) > 1 {
		rep.Mean, rep.StdDev = stat.MeanStdDev(fractions, nil)
	} else {
		rep.Mean = fractions[0]
	}
	rep.Min = floats.Min(fractions)
	rep.Max = floats.Max(fractions)
	for terminal, list := range perTerminal {
		rep.ByTerminal[terminal] = stat.Mean(list, nil)
	}
	return rep, nil
}
