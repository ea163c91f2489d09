package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Engine.Port != 8420 {
		t.Errorf("Engine.Port = %d, want 8420", cfg.Engine.Port)
	}
	if cfg.Transport.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", cfg.Transport.BaseDelay)
	}
	if cfg.Transport.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Transport.MaxAttempts)
	}
	if cfg.Trust.DecayPerMinute != 0.5 {
		t.Errorf("DecayPerMinute = %f, want 0.5", cfg.Trust.DecayPerMinute)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
engine:
  host: engine.internal
  port: 9000
transport:
  base_delay: 2s
  max_attempts: 8
playback:
  step_interval: 500ms
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := cfg.Engine.WSBase(); got != "ws://engine.internal:9000" {
		t.Errorf("WSBase = %q", got)
	}
	if got := cfg.Engine.APIBase(); got != "http://engine.internal:9000" {
		t.Errorf("APIBase = %q", got)
	}
	if cfg.Transport.MaxAttempts != 8 {
		t.Errorf("MaxAttempts = %d, want 8", cfg.Transport.MaxAttempts)
	}
	if cfg.Playback.StepInterval != 500*time.Millisecond {
		t.Errorf("StepInterval = %v", cfg.Playback.StepInterval)
	}
	// Unset fields keep defaults.
	if cfg.Playback.Capacity != 600 {
		t.Errorf("Capacity = %d, want 600", cfg.Playback.Capacity)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AEGIS_ENGINE_PORT", "9100")
	t.Setenv("AEGIS_RECONNECT_BASE_DELAY", "3s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Engine.Port != 9100 {
		t.Errorf("Engine.Port = %d, want 9100 (env wins)", cfg.Engine.Port)
	}
	if cfg.Transport.BaseDelay != 3*time.Second {
		t.Errorf("BaseDelay = %v, want 3s", cfg.Transport.BaseDelay)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load succeeded on malformed yaml")
	}
}
