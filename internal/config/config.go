package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/raspscan/raspscan/internal/model"
)

const (
	defaultHTTPAddr             = ":8099"
	defaultDBPath               = "/data/raspscan/raspscan.db"
	defaultArtifactDir          = "/data/raspscan/scans"
	defaultWorkerPoolSize       = 2
	defaultHealthWarmupWindow   = 5 * time.Minute
	defaultHealthWarmInterval   = 15 * time.Second
	defaultHealthSteadyInterval = 60 * time.Second
	defaultProbeTimeout         = 10 * time.Second
	defaultDiscoveryTimeout     = 45 * time.Second
	defaultDeliveryTimeout      = 60 * time.Second
	defaultArtifactRetention    = 30 * 24 * time.Hour
)

// Config stores runtime settings loaded from RASPSCAN_* environment variables.
type Config struct {
	HTTPAddr             string
	DBPath               string
	ArtifactDir          string
	SecretKey            string
	LogLevel             slog.Level
	WorkerPoolSize       int
	HealthWarmupWindow   time.Duration
	HealthWarmInterval   time.Duration
	HealthSteadyInterval time.Duration
	ProbeTimeout         time.Duration
	DiscoveryTimeout     time.Duration
	DeliveryTimeout      time.Duration
	ArtifactRetention    time.Duration
	FamilyPreference     []model.ConnectionFamily
}

// Load builds Config from environment variables using stable defaults.
func Load() Config {
	return Config{
		HTTPAddr:             getenv("RASPSCAN_HTTP_ADDR", defaultHTTPAddr),
		DBPath:               getenv("RASPSCAN_DB_PATH", defaultDBPath),
		ArtifactDir:          getenv("RASPSCAN_ARTIFACT_DIR", defaultArtifactDir),
		SecretKey:            getenv("RASPSCAN_SECRET_KEY", ""),
		LogLevel:             parseLogLevel(getenv("RASPSCAN_LOG_LEVEL", "info")),
		WorkerPoolSize:       parseInt("RASPSCAN_WORKER_POOL_SIZE", defaultWorkerPoolSize),
		HealthWarmupWindow:   parseDuration("RASPSCAN_HEALTH_WARMUP_WINDOW", defaultHealthWarmupWindow),
		HealthWarmInterval:   parseDuration("RASPSCAN_HEALTH_WARM_INTERVAL", defaultHealthWarmInterval),
		HealthSteadyInterval: parseDuration("RASPSCAN_HEALTH_STEADY_INTERVAL", defaultHealthSteadyInterval),
		ProbeTimeout:         parseDuration("RASPSCAN_PROBE_TIMEOUT", defaultProbeTimeout),
		DiscoveryTimeout:     parseDuration("RASPSCAN_DISCOVERY_TIMEOUT", defaultDiscoveryTimeout),
		DeliveryTimeout:      parseDuration("RASPSCAN_DELIVERY_TIMEOUT", defaultDeliveryTimeout),
		ArtifactRetention:    parseDuration("RASPSCAN_ARTIFACT_RETENTION", defaultArtifactRetention),
		FamilyPreference:     parseFamilies(getenv("RASPSCAN_FAMILY_PREFERENCE", "escl,net-legacy,usb")),
	}
}

// DBDir returns the target directory for DBPath.
func (c Config) DBDir() string {
	return filepath.Dir(c.DBPath)
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func parseInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseFamilies(raw string) []model.ConnectionFamily {
	var out []model.ConnectionFamily
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, model.ConnectionFamily(part))
	}
	if len(out) == 0 {
		out = []model.ConnectionFamily{model.FamilyESCL, model.FamilyNetLegacy, model.FamilyUSB}
	}
	return out
}
