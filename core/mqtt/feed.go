// Package mqtt declares the broker-facing contracts of the engine: a feed of
// applied disruptions and an ingest path for reported ones.
package mqtt

import (
	"github.com/kilianp07/gatealloc/core/disruption"
	"github.com/kilianp07/gatealloc/core/events"
	"github.com/kilianp07/gatealloc/core/model"
)

// FeedPublisher pushes applied disruptions to downstream consumers.
type FeedPublisher interface {
	PublishApplied(ev events.DisruptionApplied) error
}

// Ingestor accepts disruption reports received from the broker.
type Ingestor interface {
	HandleDisruption(ev model.DisruptionEvent) (disruption.Result, error)
}
