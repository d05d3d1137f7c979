package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/gatealloc/core/allocation"
	"github.com/kilianp07/gatealloc/core/model"
)

// WriteJSON writes the assignments to w in JSON format.
func WriteJSON(w io.Writer, assignments []model.GateAssignment) error {
	if assignments == nil {
		assignments = []model.GateAssignment{}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(assignments)
}

// WriteCSV writes one row per assignment with a header line.
func WriteCSV(w io.Writer, assignments []model.GateAssignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"assignment_id", "flight_id", "airline", "aircraft_type", "gate_id", "terminal", "assigned_from", "assigned_until", "status"}); err != nil {
		return err
	}
	for _, a := range assignments {
		rec := []string{
			a.ID,
			a.Flight.ID,
			a.Flight.Airline,
			a.Flight.AircraftType,
			a.Gate.ID,
			a.Gate.Terminal,
			a.From.UTC().Format(time.RFC3339),
			a.Until.UTC().Format(time.RFC3339),
			string(a.Flight.Status),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteUtilizationChart renders the per-gate occupied fractions as an HTML
// bar chart.
func WriteUtilizationChart(w io.Writer, rep allocation.UtilizationReport) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Gate utilization",
			Subtitle: fmt.Sprintf("%s - %s, mean %.1f%%", rep.From.UTC().Format("2006-01-02 15:04"), rep.To.UTC().Format("2006-01-02 15:04"), rep.Mean*100),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Gate"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Occupied (%)"}),
	)

	xAxis := make([]string, 0, len(rep.Gates))
	data := make([]opts.BarData, 0, len(rep.Gates))
	for _, g := range rep.Gates {
		xAxis = append(xAxis, g.GateID)
		data = append(data, opts.BarData{Name: g.GateID, Value: g.Fraction * 100})
	}
	bar.SetXAxis(xAxis).AddSeries("Utilization", data)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
