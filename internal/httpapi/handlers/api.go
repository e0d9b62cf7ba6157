// Package handlers maps the HTTP surface onto domain services.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/raspscan/raspscan/internal/cleanup"
	devicedomain "github.com/raspscan/raspscan/internal/domain/device"
	jobdomain "github.com/raspscan/raspscan/internal/domain/job"
	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/health"
	"github.com/raspscan/raspscan/internal/model"
)

// Discoverer runs one on-demand discovery pass.
type Discoverer interface {
	Discover(ctx context.Context) ([]model.DiscoveryRecord, error)
}

// HealthMonitor exposes the health loop operations the API needs.
type HealthMonitor interface {
	StatusSnapshot() health.Status
	CheckNow(ctx context.Context, id string) (bool, error)
	TriggerSweep()
}

// API groups HTTP handlers and dependencies.
type API struct {
	discovery Discoverer
	devices   devicedomain.Service
	monitor   HealthMonitor
	jobs      jobdomain.Service
	targets   targetdomain.Service
	reaper    *cleanup.Reaper
	profiles  []model.ScanProfile
	logger    *slog.Logger
}

// New creates HTTP handlers with explicit dependencies.
func New(
	discovery Discoverer,
	devices devicedomain.Service,
	monitor HealthMonitor,
	jobs jobdomain.Service,
	targets targetdomain.Service,
	reaper *cleanup.Reaper,
	profiles []model.ScanProfile,
	logger *slog.Logger,
) *API {
	return &API{
		discovery: discovery,
		devices:   devices,
		monitor:   monitor,
		jobs:      jobs,
		targets:   targets,
		reaper:    reaper,
		profiles:  profiles,
		logger:    logger,
	}
}

// Logger returns request logger used by HTTP middleware.
func (a *API) Logger() *slog.Logger {
	return a.logger
}

// Health reports service liveness and artifact directory usage.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	usage, err := a.reaper.Usage()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "artifacts": usage})
}

// HealthStatus returns the monitor summary with per-device detail.
func (a *API) HealthStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.monitor.StatusSnapshot())
}

// ScanProfiles returns the built-in scan parameter presets.
func (a *API) ScanProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.profiles})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
