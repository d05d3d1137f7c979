package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/gatealloc/core/events"
	coremqtt "github.com/kilianp07/gatealloc/core/mqtt"
	"github.com/kilianp07/gatealloc/infra/logger"
)

// StartFeed forwards every event from src to pub until ctx is done or src is
// closed. The returned channel is closed when the forwarder exits.
func StartFeed(ctx context.Context, src <-chan events.DisruptionApplied, pub coremqtt.FeedPublisher, log logger.Logger) <-chan struct{} {
	if log == nil {
		log = logger.NopLogger{}
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-src:
				if !ok {
					return
				}
				if err := pub.PublishApplied(ev); err != nil {
					log.Warnf("feed %s: %v", ev.Event.ID, err)
				}
			}
		}
	}()
	return done
}

// MockPublisher records published events. Used in tests.
type MockPublisher struct {
	Published []events.DisruptionApplied
	FailIDs   map[string]bool
	mu        sync.Mutex
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailIDs: make(map[string]bool)}
}

func (m *MockPublisher) PublishApplied(ev events.DisruptionApplied) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[ev.Event.ID] {
		return fmt.Errorf("publish %s failed", ev.Event.ID)
	}
	m.Published = append(m.Published, ev)
	return nil
}

// Count returns the number of recorded events.
func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}
