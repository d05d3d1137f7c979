package disruption

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gatealloc/core/allocation"
	"github.com/kilianp07/gatealloc/core/model"
	"github.com/kilianp07/gatealloc/core/store"
)

var arr = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

type fixture struct {
	t  *testing.T
	s  *store.Store
	h  *Handler
	id func() string
}

func newFixture(t *testing.T, gates ...model.Gate) *fixture {
	t.Helper()
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	s := store.New(0)
	for _, g := range gates {
		require.NoError(t, s.AddGate(g))
	}
	return &fixture{t: t, s: s, h: NewHandler(ids), id: ids}
}

func (f *fixture) allocate(fl model.Flight, preferred ...string) allocation.Result {
	f.t.Helper()
	var res allocation.Result
	require.NoError(f.t, f.s.Update(func(tx *store.Tx) error {
		var err error
		res, err = allocation.Place(tx, fl, preferred, f.id)
		return err
	}))
	require.True(f.t, res.Success, res.Message)
	return res
}

func (f *fixture) apply(ev model.DisruptionEvent) (Result, error) {
	var res Result
	err := f.s.Update(func(tx *store.Tx) error {
		var err error
		res, err = f.h.Apply(tx, ev)
		return err
	})
	return res, err
}

func large(id string) model.Gate {
	return model.Gate{ID: id, Terminal: "T5", Size: model.SizeLarge, Available: true}
}

func medium(id string) model.Gate {
	return model.Gate{ID: id, Terminal: "T5", Size: model.SizeMedium, Available: true}
}

func flight(id, aircraft string, fromMin, toMin int) model.Flight {
	return model.Flight{
		ID:                 id,
		AircraftType:       aircraft,
		ScheduledArrival:   arr.Add(time.Duration(fromMin) * time.Minute),
		ScheduledDeparture: arr.Add(time.Duration(toMin) * time.Minute),
		Status:             model.StatusScheduled,
	}
}

func TestGateUnavailableCascade(t *testing.T) {
	f := newFixture(t, large("T5-A1"), large("T5-A2"))
	first := f.allocate(flight("BA-001", "B777", 0, 120), "T5-A1")
	require.Equal(t, "T5-A1", first.Assignment.Gate.ID)
	require.Equal(t, -3, *first.Score)

	res, err := f.apply(model.DisruptionEvent{ID: "e1", Type: model.DisruptionGateUnavailable, Description: "T5-A1"})
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Equal(t, 1, res.Reassignments)
	assert.Equal(t, "Gate T5-A1 unavailable - 1 of 1 flights re-allocated", res.Summary)
	assert.Equal(t, []string{first.Assignment.ID}, res.Released)

	live := f.s.Assignments("")
	require.Len(t, live, 1)
	assert.Equal(t, "T5-A2", live[0].Gate.ID)
	assert.NotEqual(t, first.Assignment.ID, live[0].ID)
	assert.False(t, f.s.Gates()[0].Available)
	require.NoError(t, f.s.CheckInvariants())
}

func TestGateUnavailablePartialRepair(t *testing.T) {
	f := newFixture(t, large("T5-A1"), large("T5-A2"))
	f.allocate(flight("BA-007", "B777", 0, 60), "T5-A1")
	f.allocate(flight("BA-008", "B777", 120, 180), "T5-A1")
	f.allocate(flight("BA-009", "B777", 240, 300), "T5-A1")
	// T5-A2 is busy while BA-009 would need it.
	f.allocate(flight("VS-1", "A350", 230, 320), "T5-A2")

	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionGateUnavailable, AffectedGateID: "T5-A1"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Reassignments)
	assert.Equal(t, []string{"BA-009"}, res.Unplaced)
	assert.Equal(t, "Gate T5-A1 unavailable - 2 of 3 flights re-allocated; BA-009 could not be placed", res.Summary)
	assert.Len(t, f.s.Assignments(""), 3)
	require.NoError(t, f.s.CheckInvariants())
}

func TestGateUnavailableFullFailure(t *testing.T) {
	f := newFixture(t, large("T5-A1"), medium("T5-B1"))
	f.allocate(flight("BA-001", "B777", 0, 60), "T5-A1")
	f.allocate(flight("BA-002", "B777", 120, 180), "T5-A1")

	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionGateUnavailable, AffectedGateID: "T5-A1"})
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Zero(t, res.Reassignments)
	assert.Empty(t, res.Assignments)
	assert.Len(t, res.Released, 2)
	assert.Equal(t, []string{"BA-001", "BA-002"}, res.Unplaced)
	assert.Equal(t, "Gate T5-A1 unavailable - 0 of 2 flights re-allocated; BA-001, BA-002 could not be placed", res.Summary)

	assert.Empty(t, f.s.Assignments(""))
	gates := f.s.Gates()
	require.Len(t, gates, 2)
	assert.Equal(t, "T5-A1", gates[0].ID)
	assert.False(t, gates[0].Available)
	assert.Len(t, f.s.History(), 1)
	require.NoError(t, f.s.CheckInvariants())
}

func TestGateUnavailableNoFlights(t *testing.T) {
	f := newFixture(t, large("T5-A1"))
	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionGateUnavailable, AffectedGateID: "T5-A1"})
	require.NoError(t, err)
	assert.Equal(t, "Gate T5-A1 unavailable - no flights displaced", res.Summary)
}

func TestGateUnavailableUnknownGate(t *testing.T) {
	f := newFixture(t, large("T5-A1"))
	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionGateUnavailable, Description: "Z9"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrUnknownGate))
	assert.False(t, res.Acknowledged)
	assert.Empty(t, f.s.History(), "rejected events are not recorded")
}

func TestCancellationFreesCapacity(t *testing.T) {
	f := newFixture(t, medium("T5-B1"))
	f.allocate(flight("LH-901", "A320", 0, 60))

	var blocked allocation.Result
	require.NoError(t, f.s.Update(func(tx *store.Tx) error {
		var err error
		blocked, err = allocation.Place(tx, flight("LH-902", "A320", 30, 90), nil, f.id)
		return err
	}))
	require.False(t, blocked.Success)

	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionCancellation, AffectedFlightID: "LH-901"})
	require.NoError(t, err)
	assert.Equal(t, "LH-901 cancelled - 1 gate(s) freed", res.Summary)
	assert.Equal(t, model.StatusCancelled, res.Status)
	assert.Zero(t, res.Reassignments)
	assert.Empty(t, f.s.Assignments(""))

	f.allocate(flight("LH-902", "A320", 30, 90))
}

func TestDiversionReleases(t *testing.T) {
	f := newFixture(t, medium("T5-B1"))
	f.allocate(flight("AF-1", "A320", 0, 60))
	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionDiversion, AffectedFlightID: "AF-1"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiverted, res.Status)
	assert.Len(t, res.Released, 1)
	assert.Empty(t, f.s.Assignments(""))
}

func TestDelayInPlace(t *testing.T) {
	f := newFixture(t, medium("T5-B1"))
	orig := f.allocate(flight("BA-303", "A320", 0, 60)).Assignment

	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionDelay, AffectedFlightID: "BA-303", DelayMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, "BA-303 delayed 45min - window shifted on T5-B1", res.Summary)
	assert.Zero(t, res.Reassignments)

	live := f.s.Assignments("")
	require.Len(t, live, 1)
	assert.Equal(t, orig.ID, live[0].ID)
	assert.Equal(t, orig.From.Add(45*time.Minute), live[0].From)
	assert.Equal(t, orig.Until.Add(45*time.Minute), live[0].Until)
	assert.Equal(t, model.StatusDelayed, live[0].Flight.Status)
	assert.Equal(t, orig.Flight.ScheduledDeparture.Add(45*time.Minute), live[0].Flight.ScheduledDeparture)
}

func TestDelayMovesOnConflict(t *testing.T) {
	f := newFixture(t, medium("T5-B1"), medium("T5-B2"))
	orig := f.allocate(flight("BA-303", "A320", 0, 60), "T5-B1").Assignment
	f.allocate(flight("BA-304", "A320", 90, 150), "T5-B1")

	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionDelay, AffectedFlightID: "BA-303", DelayMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reassignments)
	assert.Equal(t, "BA-303 delayed 45min - moved T5-B1 -> T5-B2", res.Summary)
	assert.Equal(t, []string{orig.ID}, res.Released)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, "T5-B2", res.Assignments[0].Gate.ID)
	assert.NotEqual(t, orig.ID, res.Assignments[0].ID)
	require.NoError(t, f.s.CheckInvariants())
}

func TestDelayUnplaced(t *testing.T) {
	f := newFixture(t, medium("T5-B1"))
	f.allocate(flight("BA-303", "A320", 0, 60))
	f.allocate(flight("BA-304", "A320", 90, 150))

	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionDelay, AffectedFlightID: "BA-303", DelayMinutes: 45})
	require.NoError(t, err)
	assert.True(t, res.Acknowledged)
	assert.Zero(t, res.Reassignments)
	assert.Equal(t, []string{"BA-303"}, res.Unplaced)
	assert.Equal(t, "BA-303 delayed 45min - no compatible gate, assignment released", res.Summary)
	assert.Len(t, f.s.Assignments(""), 1)
}

func TestDelayWithoutAssignment(t *testing.T) {
	f := newFixture(t, medium("T5-B1"))
	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionDelay, AffectedFlightID: "XX-1", DelayMinutes: 10})
	require.NoError(t, err)
	assert.Equal(t, "XX-1 delayed 10min - no live assignment", res.Summary)
}

func TestEveryTypeAcknowledged(t *testing.T) {
	for _, typ := range model.DisruptionTypes() {
		t.Run(typ.String(), func(t *testing.T) {
			f := newFixture(t, large("T5-A1"))
			f.allocate(flight("BA-1", "B777", 0, 60))
			res, err := f.apply(model.DisruptionEvent{
				Type:             typ,
				AffectedFlightID: "BA-1",
				AffectedGateID:   "T5-A1",
				DelayMinutes:     5,
			})
			require.NoError(t, err)
			assert.True(t, res.Acknowledged)
			assert.NotEmpty(t, res.Summary)
			assert.Len(t, f.s.History(), 1)
		})
	}
}

func TestUnknownType(t *testing.T) {
	f := newFixture(t)
	_, err := f.apply(model.DisruptionEvent{Type: model.DisruptionType(42)})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = f.apply(model.DisruptionEvent{AffectedFlightID: "BA-1"})
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Empty(t, f.s.History())
}

func TestDelayRejectsNonPositiveMinutes(t *testing.T) {
	f := newFixture(t, medium("T5-B1"))
	orig := f.allocate(flight("BA-303", "A320", 0, 60)).Assignment

	for _, minutes := range []int{0, -30} {
		res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionDelay, AffectedFlightID: "BA-303", DelayMinutes: minutes})
		require.ErrorIs(t, err, model.ErrInvalidDisruption)
		assert.False(t, res.Acknowledged)
	}

	live := f.s.Assignments("")
	require.Len(t, live, 1)
	assert.Equal(t, orig.From, live[0].From)
	assert.Equal(t, model.StatusScheduled, live[0].Flight.Status)
	assert.Empty(t, f.s.History())
}

func TestWeatherIsRecordOnly(t *testing.T) {
	f := newFixture(t, large("T5-A1"))
	f.allocate(flight("BA-1", "B777", 0, 60))
	before := f.s.Assignments("")
	res, err := f.apply(model.DisruptionEvent{Type: model.DisruptionWeather, Description: "fog"})
	require.NoError(t, err)
	assert.Equal(t, "Weather event recorded for fog", res.Summary)
	assert.Equal(t, before, f.s.Assignments(""))
}
