package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/gatealloc/core/metrics"
	"github.com/kilianp07/gatealloc/infra/logger"
)

// InfluxSink writes allocation, disruption and gate state points to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	timeout  time.Duration
}

// NewInfluxSink creates a sink for the given endpoint. A trailing
// /api/v2/write on url is ignored.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
		timeout:  5 * time.Second,
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAllocation writes a gate_allocation point.
func (s *InfluxSink) RecordAllocation(rec coremetrics.AllocationRecord) error {
	p := write.NewPointWithMeasurement("gate_allocation").
		AddTag("flight_id", rec.FlightID).
		AddTag("aircraft_size", rec.Aircraft.String()).
		AddTag("success", strconv.FormatBool(rec.Success))
	if rec.GateID != "" {
		p = p.AddTag("gate_id", rec.GateID).AddTag("terminal", rec.Terminal)
	}
	p = p.AddField("score", rec.Score).
		AddField("latency_us", rec.Latency.Microseconds()).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordDisruption writes a gate_disruption point.
func (s *InfluxSink) RecordDisruption(rec coremetrics.DisruptionRecord) error {
	p := write.NewPointWithMeasurement("gate_disruption").
		AddTag("event_id", rec.EventID).
		AddTag("type", rec.Type.String())
	if rec.FlightID != "" {
		p = p.AddTag("flight_id", rec.FlightID)
	}
	if rec.GateID != "" {
		p = p.AddTag("gate_id", rec.GateID)
	}
	p = p.AddField("reassignments", rec.Reassignments).
		AddField("released", rec.Released).
		AddField("unplaced", rec.Unplaced).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordGateState writes a gate_state point.
func (s *InfluxSink) RecordGateState(rec coremetrics.GateStateRecord) error {
	p := write.NewPointWithMeasurement("gate_state").
		AddTag("gate_id", rec.GateID).
		AddTag("terminal", rec.Terminal).
		AddTag("size", rec.Size.String()).
		AddField("available", rec.Available).
		SetTime(rec.Time)
	return s.write(p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
