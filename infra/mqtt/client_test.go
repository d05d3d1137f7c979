package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gatealloc/core/disruption"
	"github.com/kilianp07/gatealloc/core/events"
	"github.com/kilianp07/gatealloc/core/model"
)

type fakeIngestor struct {
	mu   sync.Mutex
	got  []model.DisruptionEvent
	fail error
}

func (f *fakeIngestor) HandleDisruption(ev model.DisruptionEvent) (disruption.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, ev)
	if f.fail != nil {
		return disruption.Result{}, f.fail
	}
	return disruption.Result{Acknowledged: true, Summary: "ok"}, nil
}

func applied(id string, typ model.DisruptionType) events.DisruptionApplied {
	return events.DisruptionApplied{
		Event:  model.DisruptionEvent{ID: id, Type: typ, AffectedGateID: "T5-A1"},
		Result: disruption.Result{Acknowledged: true, Reassignments: 1, Summary: "Gate T5-A1 unavailable - 1 of 1 flights re-allocated"},
		Time:   time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC),
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, "gates", cfg.TopicPrefix)
	assert.NotEmpty(t, cfg.ClientID)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "gates/report", cfg.ReportTopic())
	assert.Equal(t, "gates/applied/gateunavailable", cfg.AppliedTopic(model.DisruptionGateUnavailable))
	assert.False(t, cfg.Enabled())
}

func TestPublishAppliedTopicAndQoS(t *testing.T) {
	mc := installMock(t)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", TopicPrefix: "lhr", QoS: map[string]byte{"feed": 1}}, nil)
	require.NoError(t, err)

	require.NoError(t, cli.PublishApplied(applied("e1", model.DisruptionGateUnavailable)))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "lhr/applied/gateunavailable", mc.published[0].topic)
	assert.Equal(t, byte(1), mc.published[0].qos)

	var decoded events.DisruptionApplied
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &decoded))
	assert.Equal(t, "e1", decoded.Event.ID)
	assert.Equal(t, model.DisruptionGateUnavailable, decoded.Event.Type)
	assert.Equal(t, 1, decoded.Result.Reassignments)
	assert.Empty(t, mc.subscribed, "no ingest subscription without an ingestor")
}

func TestPublishRetries(t *testing.T) {
	mc := installMock(t, fmt.Errorf("net fail"), nil)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, cli.PublishApplied(applied("e1", model.DisruptionDelay)))
	assert.Len(t, mc.published, 2)
}

func TestReportIngest(t *testing.T) {
	mc := installMock(t)
	ing := &fakeIngestor{}
	_, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", QoS: map[string]byte{"report": 2}}, ing)
	require.NoError(t, err)
	require.Len(t, mc.subscribed, 1)
	assert.Equal(t, "gates/report", mc.subscribed[0].topic)
	assert.Equal(t, byte(2), mc.subscribed[0].qos)

	mc.deliver("gates/report", []byte(`{"event_id":"r1","type":"gate_unavailable","affected_gate_id":"T5-A1"}`))
	mc.deliver("gates/report", []byte(`{not json`))
	mc.deliver("gates/report", []byte(`{"event_id":"r2","type":"volcano"}`))
	mc.deliver("gates/report", []byte(`{"event_id":"r3","affected_flight_id":"BA-1","description":"no type"}`))
	mc.deliver("gates/report", []byte(`{"event_id":"r4","type":"Delay","affected_flight_id":"BA-1"}`))

	require.Len(t, ing.got, 1)
	assert.Equal(t, "r1", ing.got[0].ID)
	assert.Equal(t, model.DisruptionGateUnavailable, ing.got[0].Type)
}

func TestReportIngestRejected(t *testing.T) {
	mc := installMock(t)
	ing := &fakeIngestor{fail: errors.New("unknown gate")}
	_, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}, ing)
	require.NoError(t, err)
	mc.deliver("gates/report", []byte(`{"event_id":"r1","type":"Delay","affected_flight_id":"BA-1","delay_minutes":5}`))
	assert.Len(t, ing.got, 1)
}

func TestStartFeed(t *testing.T) {
	pub := NewMockPublisher()
	pub.FailIDs["bad"] = true
	src := make(chan events.DisruptionApplied, 3)
	src <- applied("e1", model.DisruptionDelay)
	src <- applied("bad", model.DisruptionWeather)
	src <- applied("e2", model.DisruptionCancellation)
	close(src)

	done := StartFeed(context.Background(), src, pub, nil)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feed did not stop after source closed")
	}
	require.Equal(t, 2, pub.Count())
	assert.Equal(t, "e2", pub.Published[1].Event.ID)
}

func TestStartFeedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := StartFeed(ctx, make(chan events.DisruptionApplied), NewMockPublisher(), nil)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feed did not stop on cancel")
	}
}

func TestStartFeedWithPahoClient(t *testing.T) {
	mc := installMock(t)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"}, nil)
	require.NoError(t, err)
	src := make(chan events.DisruptionApplied, 1)
	src <- applied("e1", model.DisruptionDiversion)
	close(src)
	<-StartFeed(context.Background(), src, cli, nil)
	assert.Equal(t, 1, mc.publishCount())
}
