package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/gatealloc/core/metrics"
	"github.com/kilianp07/gatealloc/infra/mqtt"
)

// EnvPrefix marks environment overrides. GA_HTTP__ADDR sets http.addr.
const EnvPrefix = "GA_"

type Config struct {
	Engine   EngineConfig   `json:"engine"`
	HTTP     HTTPConfig     `json:"http"`
	MQTT     mqtt.Config    `json:"mqtt"`
	Metrics  metrics.Config `json:"metrics"`
	Logging  LoggingConfig  `json:"logging"`
	Sentry   SentryConfig   `json:"sentry"`
	Snapshot SnapshotConfig `json:"snapshot"`
	Seed     SeedConfig     `json:"seed"`
}

// Load reads path (YAML or JSON) and applies GA_ environment overrides. An
// empty path loads defaults and the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section's optional fields.
func (c *Config) SetDefaults() {
	c.Engine.SetDefaults()
	c.HTTP.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
	c.Snapshot.SetDefaults()
}

// Validate reports every invalid section at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Snapshot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("snapshot: %w", err))
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mqtt: %w", err))
	}
	if err := c.Sentry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sentry: %w", err))
	}
	return errors.Join(errs...)
}
