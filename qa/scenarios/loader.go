package scenarios

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/gatealloc/core/model"
)

//go:embed lhr.yaml
var builtin embed.FS

// BuiltinLHR names the embedded LHR morning scenario.
const BuiltinLHR = "lhr"

// FlightDef is a scheduled flight with an optional per-flight preference list.
type FlightDef struct {
	model.Flight `yaml:",inline"`
	Preferred    []string `yaml:"preferred,omitempty"`
}

// ExpectedStats mirrors engine.Stats.
type ExpectedStats struct {
	Gates          int `yaml:"total_gates"`
	AvailableGates int `yaml:"available_gates"`
	Assignments    int `yaml:"active_assignments"`
	Disruptions    int `yaml:"total_disruptions"`
}

type Expected struct {
	Allocated int      `yaml:"allocated"`
	Unplaced  []string `yaml:"unplaced,omitempty"`
	// Assignments maps flight IDs to the gate they hold at the end.
	Assignments map[string]string `yaml:"assignments,omitempty"`
	Stats       *ExpectedStats    `yaml:"stats,omitempty"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Gates       []model.Gate `yaml:"gates"`
	// Preferences maps an airline to its preferred gates. The "default" entry
	// applies to airlines without one.
	Preferences map[string][]string     `yaml:"preferences,omitempty"`
	Flights     []FlightDef             `yaml:"flights"`
	Disruptions []model.DisruptionEvent `yaml:"disruptions,omitempty"`
	Expected    *Expected               `yaml:"expected,omitempty"`
}

// PreferredFor returns the preference list used when allocating f.
func (s *Scenario) PreferredFor(f FlightDef) []string {
	if len(f.Preferred) > 0 {
		return f.Preferred
	}
	if p, ok := s.Preferences[f.Airline]; ok {
		return p
	}
	return s.Preferences["default"]
}

// Validate checks gates, flights and disruptions before anything touches an
// engine.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scenario name is required")
	}
	seen := make(map[string]struct{}, len(s.Gates))
	for _, g := range s.Gates {
		if err := g.Validate(); err != nil {
			return err
		}
		if _, dup := seen[g.ID]; dup {
			return fmt.Errorf("duplicate gate %s", g.ID)
		}
		seen[g.ID] = struct{}{}
	}
	for _, f := range s.Flights {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	for i, ev := range s.Disruptions {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("disruption %d: %w", i+1, err)
		}
	}
	return nil
}

// Load reads a scenario file. The name "lhr" selects the embedded scenario.
func Load(path string) (*Scenario, error) {
	var (
		data []byte
		err  error
	)
	if path == BuiltinLHR {
		data, err = builtin.ReadFile("lhr.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return &sc, nil
}
