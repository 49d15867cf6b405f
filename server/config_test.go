package server

import (
	"bytes"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfigJSONRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForecastPollInterval = 5 * time.Minute
	cfg.SolverTimeout = 90 * time.Second

	var buf bytes.Buffer
	if err := cfg.SaveConfigToWriter(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadConfigFromReader(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ForecastPollInterval != 5*time.Minute {
		t.Fatalf("forecast_poll_interval = %s, want 5m", loaded.ForecastPollInterval)
	}
	if loaded.SolverTimeout != 90*time.Second {
		t.Fatalf("solver_timeout = %s, want 90s", loaded.SolverTimeout)
	}
}

func TestConfigValidateRejectsBadHorizon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HorizonHours = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero horizon")
	}

	cfg = DefaultConfig()
	cfg.DeltaMinutes = 7 // 24h/7m is not an integer step count
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-integer step count")
	}
}

func TestConfigValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
