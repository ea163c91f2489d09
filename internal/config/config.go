// Package config loads console settings from YAML with coded defaults;
// environment variables override file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Transport TransportConfig `yaml:"transport"`
	Trust     TrustConfig     `yaml:"trust"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Demo      DemoConfig      `yaml:"demo"`
}

// EngineConfig addresses the remote analysis engine.
type EngineConfig struct {
	Host string `yaml:"host" env:"AEGIS_ENGINE_HOST"`
	Port int    `yaml:"port" env:"AEGIS_ENGINE_PORT"`
}

// WSBase is the WebSocket origin for the transport client.
func (e EngineConfig) WSBase() string {
	return fmt.Sprintf("ws://%s:%d", e.Host, e.Port)
}

// APIBase is the HTTP origin for the query client.
func (e EngineConfig) APIBase() string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.Port)
}

type TransportConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay" env:"AEGIS_RECONNECT_BASE_DELAY"`
	MaxAttempts int           `yaml:"max_attempts" env:"AEGIS_RECONNECT_MAX_ATTEMPTS"`
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("2s",
// "500ms"); yaml.v3 alone would reject them.
func (t *TransportConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseDelay   string `yaml:"base_delay"`
		MaxAttempts *int   `yaml:"max_attempts"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.BaseDelay != "" {
		d, err := time.ParseDuration(raw.BaseDelay)
		if err != nil {
			return fmt.Errorf("base_delay: %w", err)
		}
		t.BaseDelay = d
	}
	if raw.MaxAttempts != nil {
		t.MaxAttempts = *raw.MaxAttempts
	}
	return nil
}

type TrustConfig struct {
	DecayPerMinute float64 `yaml:"decay_per_minute" env:"AEGIS_TRUST_DECAY_PER_MINUTE"`
}

type PlaybackConfig struct {
	StepInterval time.Duration `yaml:"step_interval" env:"AEGIS_PLAYBACK_STEP_INTERVAL"`
	Capacity     int           `yaml:"capacity" env:"AEGIS_TIMELINE_CAPACITY"`
}

func (p *PlaybackConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		StepInterval string `yaml:"step_interval"`
		Capacity     *int   `yaml:"capacity"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.StepInterval != "" {
		d, err := time.ParseDuration(raw.StepInterval)
		if err != nil {
			return fmt.Errorf("step_interval: %w", err)
		}
		p.StepInterval = d
	}
	if raw.Capacity != nil {
		p.Capacity = *raw.Capacity
	}
	return nil
}

type DemoConfig struct {
	ScenarioDir string `yaml:"scenario_dir" env:"AEGIS_SCENARIO_DIR"`
}

// Load reads the config file at path, falling back to defaults for any
// unset field and applying environment overrides last. A missing file
// is fine; defaults carry the whole config.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Engine: EngineConfig{
			Host: "127.0.0.1",
			Port: 8420,
		},
		Transport: TransportConfig{
			BaseDelay:   time.Second,
			MaxAttempts: 5,
		},
		Trust: TrustConfig{
			DecayPerMinute: 0.5,
		},
		Playback: PlaybackConfig{
			StepInterval: time.Second,
			Capacity:     600,
		},
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	return cfg, nil
}
