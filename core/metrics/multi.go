package metrics

import "errors"

// MultiSink fans records out to several sinks. Optional recorders are only
// called on sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocation forwards to every sink and joins their errors.
func (m *MultiSink) RecordAllocation(rec AllocationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordDisruption(rec DisruptionRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DisruptionRecorder); ok {
			if err := r.RecordDisruption(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordGateState(rec GateStateRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(GateStateRecorder); ok {
			if err := r.RecordGateState(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		CloseSink(s)
	}
}

// CloseSink calls Close on s when it has one.
func CloseSink(s MetricsSink) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}
