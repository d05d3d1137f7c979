package config

import (
	"fmt"
	"time"
)

// SnapshotConfig selects where gates and live assignments are persisted.
type SnapshotConfig struct {
	// Backend is "none", "json" or "sqlite".
	Backend         string `json:"backend"`
	Path            string `json:"path"`
	IntervalSeconds int    `json:"interval_seconds"`
}

func (c *SnapshotConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "json":
			c.Path = "gates.snapshot.json"
		case "sqlite":
			c.Path = "gates.db"
		}
	}
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 60
	}
}

func (c SnapshotConfig) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

func (c SnapshotConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
