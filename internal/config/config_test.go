package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/raspscan/raspscan/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8099" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.WorkerPoolSize != 2 {
		t.Fatalf("WorkerPoolSize = %d", cfg.WorkerPoolSize)
	}
	if cfg.HealthWarmInterval != 15*time.Second || cfg.HealthSteadyInterval != 60*time.Second {
		t.Fatalf("health intervals = %v / %v", cfg.HealthWarmInterval, cfg.HealthSteadyInterval)
	}
	want := []model.ConnectionFamily{model.FamilyESCL, model.FamilyNetLegacy, model.FamilyUSB}
	if len(cfg.FamilyPreference) != len(want) {
		t.Fatalf("FamilyPreference = %v", cfg.FamilyPreference)
	}
	for i, family := range want {
		if cfg.FamilyPreference[i] != family {
			t.Fatalf("FamilyPreference[%d] = %s, want %s", i, cfg.FamilyPreference[i], family)
		}
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RASPSCAN_HTTP_ADDR", ":9000")
	t.Setenv("RASPSCAN_WORKER_POOL_SIZE", "4")
	t.Setenv("RASPSCAN_PROBE_TIMEOUT", "3s")
	t.Setenv("RASPSCAN_LOG_LEVEL", "debug")
	t.Setenv("RASPSCAN_FAMILY_PREFERENCE", "usb,escl")

	cfg := Load()
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.WorkerPoolSize != 4 {
		t.Fatalf("WorkerPoolSize = %d", cfg.WorkerPoolSize)
	}
	if cfg.ProbeTimeout != 3*time.Second {
		t.Fatalf("ProbeTimeout = %v", cfg.ProbeTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
	if len(cfg.FamilyPreference) != 2 || cfg.FamilyPreference[0] != model.FamilyUSB {
		t.Fatalf("FamilyPreference = %v", cfg.FamilyPreference)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("RASPSCAN_WORKER_POOL_SIZE", "-3")
	t.Setenv("RASPSCAN_PROBE_TIMEOUT", "soon")

	cfg := Load()
	if cfg.WorkerPoolSize != 2 {
		t.Fatalf("invalid pool size must fall back, got %d", cfg.WorkerPoolSize)
	}
	if cfg.ProbeTimeout != 10*time.Second {
		t.Fatalf("invalid duration must fall back, got %v", cfg.ProbeTimeout)
	}
}
