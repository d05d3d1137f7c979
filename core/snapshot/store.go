package snapshot

import (
	"context"
	"time"

	"github.com/kilianp07/gatealloc/core/model"
)

// Snapshot is a point-in-time copy of the gates and live assignments.
type Snapshot struct {
	TakenAt     time.Time              `json:"taken_at"`
	Gates       []model.Gate           `json:"gates"`
	Assignments []model.GateAssignment `json:"assignments"`
}

// Empty reports whether the snapshot carries no gates.
func (s Snapshot) Empty() bool { return len(s.Gates) == 0 }

// Store persists snapshots. Load returns ok=false when nothing was saved yet.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)
	Close() error
}

// NopStore discards snapshots.
type NopStore struct{}

func (NopStore) Save(context.Context, Snapshot) error { return nil }
func (NopStore) Load(context.Context) (Snapshot, bool, error) {
	return Snapshot{}, false, nil
}
func (NopStore) Close() error { return nil }
