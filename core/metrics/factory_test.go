package metrics_test

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/gatealloc/core/factory"
	metrics "github.com/kilianp07/gatealloc/core/metrics"
	_ "github.com/kilianp07/gatealloc/infra/metrics"
)

func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create nop: %v", err)
	}
	if s == nil {
		t.Fatal("expected sink instance")
	}
	if _, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	types := metrics.SinkTypes()
	want := map[string]bool{"nop": false, "prometheus": false, "influx": false}
	for _, name := range types {
		want[name] = true
	}
	for name, ok := range want {
		if !ok {
			t.Errorf("sink %s not registered", name)
		}
	}
}

func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
}

func TestMetricsConfigDecodeYAML(t *testing.T) {
	data := `sinks:
  - type: nop
  - type: influx
    conf:
      url: http://localhost:8086
prometheus_addr: ":2112"
`
	var cfg metrics.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].Type != "influx" {
		t.Fatalf("unexpected sinks %+v", cfg.Sinks)
	}
	if cfg.Sinks[1].Conf["url"] != "http://localhost:8086" {
		t.Fatalf("conf not decoded: %v", cfg.Sinks[1].Conf)
	}
	if cfg.PrometheusAddr != ":2112" {
		t.Fatalf("prometheus_addr not decoded")
	}
}
