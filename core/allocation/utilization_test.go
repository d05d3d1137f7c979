package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gatealloc/core/model"
)

func TestUtilization(t *testing.T) {
	a1 := gate("A1", model.SizeLarge)
	a2 := gate("A2", model.SizeMedium)
	b1 := model.Gate{ID: "B1", Terminal: "T3", Size: model.SizeSmall, Available: true}
	bounds := model.TimeWindow{Start: arr, End: arr.Add(4 * time.Hour)}
	assignments := []model.GateAssignment{
		{ID: "x", Gate: a1, From: arr, Until: arr.Add(2 * time.Hour)},
		// Clipped to the last hour of the window.
		{ID: "y", Gate: a2, From: arr.Add(3 * time.Hour), Until: arr.Add(6 * time.Hour)},
		{ID: "z", Gate: a1, From: arr.Add(10 * time.Hour), Until: arr.Add(11 * time.Hour)},
	}

	rep, err := Utilization([]model.Gate{b1, a2, a1}, assignments, bounds)
	require.NoError(t, err)
	require.Len(t, rep.Gates, 3)
	assert.Equal(t, "A1", rep.Gates[0].GateID)
	assert.InDelta(t, 0.5, rep.Gates[0].Fraction, 1e-9)
	assert.Equal(t, time.Hour, rep.Gates[1].Occupied)
	assert.InDelta(t, 0.25, rep.Gates[1].Fraction, 1e-9)
	assert.InDelta(t, 0, rep.Gates[2].Fraction, 1e-9)

	assert.InDelta(t, 0.25, rep.Mean, 1e-9)
	assert.InDelta(t, 0.25, rep.StdDev, 1e-9)
	assert.InDelta(t, 0, rep.Min, 1e-9)
	assert.InDelta(t, 0.5, rep.Max, 1e-9)
	assert.InDelta(t, 0.375, rep.ByTerminal["T5"], 1e-9)
	assert.InDelta(t, 0, rep.ByTerminal["T3"], 1e-9)
}

func TestUtilizationEmptyWindow(t *testing.T) {
	_, err := Utilization(nil, nil, model.TimeWindow{Start: arr, End: arr})
	assert.Error(t, err)

	rep, err := Utilization(nil, nil, model.TimeWindow{Start: arr, End: arr.Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, rep.Gates)
	assert.Zero(t, rep.Mean)
}
