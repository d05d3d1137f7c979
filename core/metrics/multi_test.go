package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordAllocation(AllocationRecord) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordDisruption(DisruptionRecord) error {
	r.count++
	return r.err
}

// allocOnly implements no optional recorder.
type allocOnly struct{ count int }

func (a *allocOnly) RecordAllocation(AllocationRecord) error {
	a.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &allocOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordAllocation(AllocationRecord{FlightID: "BA-1"}); err != nil {
		t.Fatalf("record allocation: %v", err)
	}
	if err := m.RecordDisruption(DisruptionRecord{EventID: "e1"}); err != nil {
		t.Fatalf("record disruption: %v", err)
	}
	if err := m.RecordGateState(GateStateRecord{GateID: "A1"}); err != nil {
		t.Fatalf("record gate: %v", err)
	}
	if s1.count != 2 || s2.count != 1 {
		t.Fatalf("records not forwarded: %d %d", s1.count, s2.count)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	other := &recordSink{}
	m := NewMultiSink(&recordSink{err: boom}, other)
	err := m.RecordAllocation(AllocationRecord{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom got %v", err)
	}
	if other.count != 1 {
		t.Fatalf("later sinks must still receive the record")
	}
}

type closingSink struct {
	allocOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c1, c2 := &closingSink{}, &closingSink{}
	m := NewMultiSink(c1, &allocOnly{}, c2)
	CloseSink(m)
	if !c1.closed || !c2.closed {
		t.Fatalf("sinks not closed: %v %v", c1.closed, c2.closed)
	}
}
