// Package store holds the authoritative in-memory state of the allocation
// engine: gates, live assignments and the bounded disruption history.
//
// Every logical operation runs inside a single transaction. View takes the
// read lock and Update takes the write lock; slices handed out by a Tx are
// copies, so callers never observe a mutation in progress.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/gatealloc/core/model"
	"github.com/kilianp07/gatealloc/core/snapshot"
)

var (
	ErrDuplicateGate       = errors.New("duplicate gate")
	ErrUnknownGate         = errors.New("unknown gate")
	ErrUnknownAssignment   = errors.New("unknown assignment")
	ErrDuplicateAssignment = errors.New("duplicate assignment")
	ErrConflict            = errors.New("overlapping assignment on gate")
	ErrReadOnly            = errors.New("write in read-only transaction")
)

// DefaultHistoryLimit bounds the disruption history when no limit is configured.
const DefaultHistoryLimit = 1000

type Store struct {
	mu           sync.RWMutex
	gates        map[string]model.Gate
	assignments  map[string]model.GateAssignment
	byGate       map[string]map[string]struct{}
	history      []model.DisruptionEvent
	historyLimit int
	disruptions  int
}

// New returns an empty store. A non-positive historyLimit uses DefaultHistoryLimit.
func New(historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		gates:        make(map[string]model.Gate),
		assignments:  make(map[string]model.GateAssignment),
		byGate:       make(map[string]map[string]struct{}),
		historyLimit: historyLimit,
	}
}

// View runs fn under the shared lock. Writes through the Tx fail with ErrReadOnly.
func (s *Store) View(fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&Tx{s: s})
}

// Update runs fn under the exclusive lock. Mutations already applied when fn
// returns an error are kept.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx{s: s, writable: true})
}

// AddGate registers a gate.
func (s *Store) AddGate(g model.Gate) error {
	return s.Update(func(tx *Tx) error { return tx.AddGate(g) })
}

// Gates returns all gates sorted by ID.
func (s *Store) Gates() []model.Gate {
	var out []model.Gate
	_ = s.View(func(tx *Tx) error {
		out = tx.Gates()
		return nil
	})
	return out
}

// Assignments returns the live assignments, restricted to a terminal when
// terminal is not empty.
func (s *Store) Assignments(terminal string) []model.GateAssignment {
	var out []model.GateAssignment
	_ = s.View(func(tx *Tx) error {
		out = tx.Assignments(terminal)
		return nil
	})
	return out
}

func (s *Store) InsertAssignment(a model.GateAssignment) error {
	return s.Update(func(tx *Tx) error { return tx.InsertAssignment(a) })
}

func (s *Store) RemoveAssignment(id string) error {
	return s.Update(func(tx *Tx) error {
		_, err := tx.RemoveAssignment(id)
		return err
	})
}

func (s *Store) SetGateAvailability(id string, available bool) error {
	return s.Update(func(tx *Tx) error { return tx.SetGateAvailability(id, available) })
}

// History returns the retained disruption events, oldest first.
func (s *Store) History() []model.DisruptionEvent {
	var out []model.DisruptionEvent
	_ = s.View(func(tx *Tx) error {
		out = tx.History()
		return nil
	})
	return out
}

// Snapshot copies gates and assignments.
func (s *Store) Snapshot(now time.Time) snapshot.Snapshot {
	var snap snapshot.Snapshot
	_ = s.View(func(tx *Tx) error {
		snap = snapshot.Snapshot{TakenAt: now, Gates: tx.Gates(), Assignments: tx.Assignments("")}
		return nil
	})
	return snap
}

// Restore replaces gates and assignments with the snapshot content. The
// snapshot is validated first; on error the store is left untouched. The
// disruption history is kept.
func (s *Store) Restore(snap snapshot.Snapshot) error {
	fresh := New(s.historyLimit)
	tx := &Tx{s: fresh, writable: true}
	for _, g := range snap.Gates {
		if err := tx.AddGate(g); err != nil {
			return fmt.Errorf("restore gate %s: %w", g.ID, err)
		}
	}
	for _, a := range snap.Assignments {
		if err := tx.InsertAssignment(a); err != nil {
			return fmt.Errorf("restore assignment %s: %w", a.ID, err)
		}
	}
	s.mu.Lock()
	s.gates = fresh.gates
	s.assignments = fresh.assignments
	s.byGate = fresh.byGate
	s.mu.Unlock()
	return nil
}

// CheckInvariants scans every gate for overlapping live assignments.
func (s *Store) CheckInvariants() error {
	return s.View(func(tx *Tx) error {
		for gateID := range s.byGate {
			list := tx.AssignmentsOnGate(gateID)
			for i := 0; i < len(list); i++ {
				for j := i + 1; j < len(list); j++ {
					if list[i].Window().Overlaps(list[j].Window()) {
						return fmt.Errorf("%w: %s: %s and %s", ErrConflict, gateID, list[i].ID, list[j].ID)
					}
				}
			}
		}
		return nil
	})
}

func sortAssignments(list []model.GateAssignment) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.From.Equal(b.From) {
			return a.From.Before(b.From)
		}
		if a.Gate.ID != b.Gate.ID {
			return a.Gate.ID < b.Gate.ID
		}
		return a.ID < b.ID
	})
}
