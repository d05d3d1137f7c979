package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gatealloc/core/model"
)

func sample() Snapshot {
	at := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	a1 := model.Gate{ID: "T5-A1", Terminal: "T5", Size: model.SizeLarge, Available: true}
	b1 := model.Gate{ID: "T5-B1", Terminal: "T5", Size: model.SizeMedium, Available: false}
	f := model.Flight{
		ID: "BA-001", Airline: "BA", Origin: "JFK", Destination: "LHR", AircraftType: "B777",
		ScheduledArrival: at, ScheduledDeparture: at.Add(2 * time.Hour), Status: model.StatusScheduled,
	}
	w := f.Window()
	return Snapshot{
		TakenAt:     at.Add(time.Minute),
		Gates:       []model.Gate{a1, b1},
		Assignments: []model.GateAssignment{{ID: "a-1", Flight: f, Gate: a1, From: w.Start, Until: w.End}},
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	js, err := Open("json", filepath.Join(dir, "nested", "snap.json"))
	require.NoError(t, err)
	sq, err := Open("sqlite", filepath.Join(dir, "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"json": js, "sqlite": sq}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := st.Load(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			want := sample()
			require.NoError(t, st.Save(ctx, want))
			got, ok, err := st.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, want.TakenAt.Equal(got.TakenAt))
			assert.Equal(t, want.Gates, got.Gates)
			require.Len(t, got.Assignments, 1)
			assert.Equal(t, want.Assignments[0].ID, got.Assignments[0].ID)
			assert.True(t, want.Assignments[0].Until.Equal(got.Assignments[0].Until))
			assert.Equal(t, "B777", got.Assignments[0].Flight.AircraftType)
			assert.Equal(t, want.Assignments[0].Gate, got.Assignments[0].Gate)

			// A later save replaces the previous content.
			empty := Snapshot{TakenAt: want.TakenAt.Add(time.Hour), Gates: want.Gates[:1]}
			require.NoError(t, st.Save(ctx, empty))
			got, ok, err = st.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Len(t, got.Gates, 1)
			assert.Empty(t, got.Assignments)
		})
	}
}

func TestJSONStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := NewJSONStore(filepath.Join(dir, "snap.json"))
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), sample()))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snap.json", entries[0].Name())
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	st, err := NewJSONStore(path)
	require.NoError(t, err)
	_, _, err = st.Load(context.Background())
	assert.Error(t, err)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("redis", "x")
	assert.Error(t, err)
	st, err := Open("none", "")
	require.NoError(t, err)
	_, ok, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
