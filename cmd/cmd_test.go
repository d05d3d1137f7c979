package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgPath, serveAddr, seedName, validateScenario, demoCheck, demoExport = "", "", "", "", false, ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDemoBuiltin(t *testing.T) {
	out, err := execute(t, "demo", "--check")
	if err != nil {
		t.Fatalf("demo: %v\n%s", err, out)
	}
	for _, want := range []string{
		"BA-303 delayed 45min - window shifted on T5-B1",
		"Gates: 9/10 available | Assignments: 6 | Disruptions: 3",
		"matches expectations",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestDemoExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.csv")
	if out, err := execute(t, "demo", "--export", path); err != nil {
		t.Fatalf("demo: %v\n%s", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want header plus 6 assignments:\n%s", len(lines), data)
	}
	if !strings.Contains(string(data), "BA-303") {
		t.Errorf("export missing BA-303:\n%s", data)
	}
}

func TestDemoExportBadExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.xml")
	if _, err := execute(t, "demo", "--export", path); err == nil {
		t.Fatal("expected error for .xml export")
	}
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("metrics:\n  sinks:\n    - type: prometheus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "validate", "-c", path, "--scenario", "lhr")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "scenario lhr-morning OK: 10 gates, 8 flights, 3 disruptions") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestValidateUnknownSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("metrics:\n  sinks:\n    - type: graphite\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "validate", "-c", path); err == nil {
		t.Fatal("expected error for unknown sink")
	}
}
