package config

import "fmt"

// EngineConfig tunes the allocation engine.
type EngineConfig struct {
	// HistoryLimit bounds the in-memory disruption history.
	HistoryLimit int `json:"history_limit"`
}

func (c *EngineConfig) SetDefaults() {
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 1000
	}
}

func (c EngineConfig) Validate() error {
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be positive")
	}
	return nil
}

// HTTPConfig configures the JSON API listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Token enables bearer authentication when set.
	Token               string `json:"token"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 10
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = 10
	}
}

// SeedConfig points at a scenario replayed on start when no snapshot was restored.
// Scenario "lhr" selects the built-in demo.
type SeedConfig struct {
	Scenario string `json:"scenario"`
	// GatesOnly skips the scenario flights and disruptions.
	GatesOnly bool `json:"gates_only"`
}
