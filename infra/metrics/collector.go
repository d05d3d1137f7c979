package metrics

import (
	"context"

	"github.com/kilianp07/gatealloc/core/events"
	"github.com/kilianp07/gatealloc/core/model"
	coremetrics "github.com/kilianp07/gatealloc/core/metrics"
	"github.com/kilianp07/gatealloc/infra/logger"
	"github.com/kilianp07/gatealloc/internal/eventbus"
)

// StartEventCollector subscribes to the engine bus and forwards events to
// sink until ctx is canceled or the bus closes. The returned channel is
// closed when the collector stops.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := forward(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func forward(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.AllocationEvent:
		return sink.RecordAllocation(coremetrics.AllocationRecord{
			FlightID: e.FlightID,
			Aircraft: e.Aircraft,
			GateID:   e.GateID,
			Terminal: e.Terminal,
			Success:  e.Success,
			Score:    e.Score,
			Latency:  e.Latency,
			Time:     e.Time,
		})
	case events.DisruptionApplied:
		r, ok := sink.(coremetrics.DisruptionRecorder)
		if !ok {
			return nil
		}
		return r.RecordDisruption(coremetrics.DisruptionRecord{
			EventID:       e.Event.ID,
			Type:          e.Event.Type,
			FlightID:      e.Event.AffectedFlightID,
			GateID:        gateOf(e.Event),
			Reassignments: e.Result.Reassignments,
			Released:      len(e.Result.Released),
			Unplaced:      len(e.Result.Unplaced),
			Time:          e.Time,
		})
	case events.GateStateEvent:
		r, ok := sink.(coremetrics.GateStateRecorder)
		if !ok {
			return nil
		}
		return r.RecordGateState(coremetrics.GateStateRecord{
			GateID:    e.Gate.ID,
			Terminal:  e.Gate.Terminal,
			Size:      e.Gate.Size,
			Available: e.Gate.Available,
			Time:      e.Time,
		})
	}
	return nil
}

func gateOf(ev model.DisruptionEvent) string {
	if ev.Type == model.DisruptionGateUnavailable {
		return ev.GateID()
	}
	return ev.AffectedGateID
}
