// Package engine exposes the gate allocation operations. Every operation runs
// in one store transaction; events, metrics and logs are emitted after it
// commits.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/gatealloc/core/allocation"
	"github.com/kilianp07/gatealloc/core/disruption"
	"github.com/kilianp07/gatealloc/core/events"
	"github.com/kilianp07/gatealloc/core/logger"
	"github.com/kilianp07/gatealloc/core/model"
	"github.com/kilianp07/gatealloc/core/monitoring"
	"github.com/kilianp07/gatealloc/core/snapshot"
	"github.com/kilianp07/gatealloc/core/store"
	"github.com/kilianp07/gatealloc/internal/eventbus"
)

type Engine struct {
	store   *store.Store
	handler *disruption.Handler
	bus     eventbus.EventBus
	feed    *eventbus.TypedBus[events.DisruptionApplied]
	log     logger.Logger
	newID   func() string
	now     func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithBus publishes engine events on bus in addition to the disruption feed.
func WithBus(bus eventbus.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithIDGenerator replaces the UUID generator used for assignment and event IDs.
func WithIDGenerator(f func() string) Option {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New wraps st. The engine is the only writer expected on st.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: st,
		feed:  eventbus.NewTyped[events.DisruptionApplied](),
		log:   logger.NopLogger{},
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	e.handler = disruption.NewHandler(e.newID)
	return e
}

// AddGate registers g. Duplicate IDs fail with store.ErrDuplicateGate.
func (e *Engine) AddGate(g model.Gate) error {
	var c store.Counts
	err := e.store.Update(func(tx *store.Tx) error {
		if err := tx.AddGate(g); err != nil {
			return err
		}
		c = tx.Counts()
		return nil
	})
	if err != nil {
		return err
	}
	e.observeCounts(c)
	e.publish(events.GateStateEvent{Gate: g, Time: e.now()})
	e.log.Infof("gate %s registered", g)
	return nil
}

// SetGateAvailability toggles a gate. Existing assignments are kept; use a
// GateUnavailable disruption to displace them.
func (e *Engine) SetGateAvailability(id string, available bool) error {
	var (
		g model.Gate
		c store.Counts
	)
	err := e.store.Update(func(tx *store.Tx) error {
		if err := tx.SetGateAvailability(id, available); err != nil {
			return err
		}
		g, _ = tx.Gate(id)
		c = tx.Counts()
		return nil
	})
	if err != nil {
		return err
	}
	e.observeCounts(c)
	e.publish(events.GateStateEvent{Gate: g, Time: e.now()})
	e.log.Infof("gate %s availability set to %t", id, available)
	return nil
}

// Gates returns every registered gate sorted by ID.
func (e *Engine) Gates() []model.Gate {
	return e.store.Gates()
}

// AllocateGate places f on the best compatible gate. "No gate" is reported
// through Result.Success; the error is reserved for malformed flights.
func (e *Engine) AllocateGate(f model.Flight, preferred []string) (allocation.Result, error) {
	if err := f.Validate(); err != nil {
		return allocation.Result{}, err
	}
	if f.Status == "" {
		f.Status = model.StatusScheduled
	}
	start := time.Now()
	var (
		res allocation.Result
		c   store.Counts
	)
	err := e.store.Update(func(tx *store.Tx) error {
		var err error
		res, err = allocation.Place(tx, f, preferred, e.newID)
		c = tx.Counts()
		return err
	})
	if err != nil {
		e.corrupted(err, map[string]string{"operation": "allocate", "flight_id": f.ID})
	}
	elapsed := time.Since(start)
	operationDuration.WithLabelValues("allocate").Observe(elapsed.Seconds())
	e.observeCounts(c)

	ev := events.AllocationEvent{FlightID: f.ID, Aircraft: f.AircraftSize(), Success: res.Success, Latency: elapsed, Time: e.now()}
	if res.Success {
		allocationsTotal.WithLabelValues("allocated").Inc()
		allocationScore.Observe(float64(*res.Score))
		ev.GateID, ev.Terminal, ev.Score = res.Assignment.Gate.ID, res.Assignment.Gate.Terminal, *res.Score
		e.log.Infof("%s", res.Message)
	} else {
		allocationsTotal.WithLabelValues("no_gate").Inc()
		e.log.Warnf("%s", res.Message)
	}
	e.publish(ev)
	return res, nil
}

// HandleDisruption applies ev. An empty ID is replaced with a fresh UUID and
// a zero ReportedAt with the current time.
func (e *Engine) HandleDisruption(ev model.DisruptionEvent) (disruption.Result, error) {
	if ev.ID == "" {
		ev.ID = e.newID()
	}
	if ev.ReportedAt.IsZero() {
		ev.ReportedAt = e.now()
	}
	start := time.Now()
	var (
		res disruption.Result
		c   store.Counts
	)
	err := e.store.Update(func(tx *store.Tx) error {
		var err error
		res, err = e.handler.Apply(tx, ev)
		c = tx.Counts()
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			e.corrupted(err, map[string]string{"operation": "disruption", "event_id": ev.ID})
		}
		e.log.Warnf("disruption %s rejected: %v", ev.ID, err)
		return res, fmt.Errorf("handle %s: %w", ev.Type, err)
	}
	operationDuration.WithLabelValues("disrupt").Observe(time.Since(start).Seconds())
	e.observeCounts(c)
	disruptionsTotal.WithLabelValues(ev.Type.String()).Inc()
	reassignmentsTotal.Add(float64(res.Reassignments))
	unplacedTotal.Add(float64(len(res.Unplaced)))

	e.log.Debugw("disruption applied", map[string]any{
		"event_id":      ev.ID,
		"type":          ev.Type.String(),
		"reassignments": res.Reassignments,
		"released":      len(res.Released),
		"unplaced":      len(res.Unplaced),
	})
	e.log.Infof("%s", res.Summary)

	applied := events.DisruptionApplied{Event: ev, Result: res, Time: e.now()}
	e.feed.Publish(applied)
	e.publish(applied)
	if ev.Type == model.DisruptionGateUnavailable {
		for _, g := range e.store.Gates() {
			if g.ID == ev.GateID() {
				e.publish(events.GateStateEvent{Gate: g, Time: applied.Time})
			}
		}
	}
	return res, nil
}

// GetAssignments returns live assignments, restricted to terminal when it is
// not empty.
func (e *Engine) GetAssignments(terminal string) []model.GateAssignment {
	start := time.Now()
	defer func() { operationDuration.WithLabelValues("query").Observe(time.Since(start).Seconds()) }()
	return e.store.Assignments(terminal)
}

// History returns retained disruption events, oldest first.
func (e *Engine) History() []model.DisruptionEvent {
	return e.store.History()
}

// Stats reports store counters.
func (e *Engine) Stats() Stats {
	var c store.Counts
	_ = e.store.View(func(tx *store.Tx) error {
		c = tx.Counts()
		return nil
	})
	return Stats{Gates: c.Gates, AvailableGates: c.AvailableGates, Assignments: c.Assignments, Disruptions: c.Disruptions}
}

// Utilization reports gate occupancy over [from, to).
func (e *Engine) Utilization(from, to time.Time) (allocation.UtilizationReport, error) {
	var (
		gates []model.Gate
		live  []model.GateAssignment
	)
	_ = e.store.View(func(tx *store.Tx) error {
		gates = tx.Gates()
		live = tx.Assignments("")
		return nil
	})
	return allocation.Utilization(gates, live, model.TimeWindow{Start: from, End: to})
}

// Snapshot copies gates and live assignments.
func (e *Engine) Snapshot() snapshot.Snapshot {
	return e.store.Snapshot(e.now())
}

// Restore replaces gates and assignments with snap after validating it.
func (e *Engine) Restore(snap snapshot.Snapshot) error {
	if err := e.store.Restore(snap); err != nil {
		return err
	}
	st := e.Stats()
	liveAssignments.Set(float64(st.Assignments))
	availableGates.Set(float64(st.AvailableGates))
	e.log.Infof("restored %d gates and %d assignments from %s", len(snap.Gates), len(snap.Assignments), snap.TakenAt.Format(time.RFC3339))
	return nil
}

// Subscribe returns a feed of applied disruptions. Slow subscribers miss events.
func (e *Engine) Subscribe() <-chan events.DisruptionApplied {
	return e.feed.Subscribe()
}

func (e *Engine) Unsubscribe(ch <-chan events.DisruptionApplied) {
	e.feed.Unsubscribe(ch)
}

// Close ends the disruption feed. The event bus belongs to the caller.
func (e *Engine) Close() {
	e.feed.Close()
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) observeCounts(c store.Counts) {
	liveAssignments.Set(float64(c.Assignments))
	availableGates.Set(float64(c.AvailableGates))
}

// corrupted reports a store rejection of an assignment chosen by the engine
// itself and panics.
func (e *Engine) corrupted(err error, tags map[string]string) {
	e.log.Errorf("store invariant violated: %v", err)
	monitoring.Invariant(fmt.Errorf("store invariant violated: %w", err), tags)
}
