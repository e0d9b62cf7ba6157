package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/raspscan/raspscan/internal/discovery"
	devicedomain "github.com/raspscan/raspscan/internal/domain/device"
	"github.com/raspscan/raspscan/internal/model"
)

// Discover runs all probes and returns the merged candidate listing.
func (a *API) Discover(w http.ResponseWriter, r *http.Request) {
	records, err := a.discovery.Discover(r.Context())
	if err != nil {
		if errors.Is(err, discovery.ErrAllProbesFailed) {
			writeError(w, http.StatusServiceUnavailable, "discovery_failed", "All discovery probes failed")
			return
		}
		writeError(w, http.StatusInternalServerError, "discovery_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}

// ConfirmDevice registers a discovered or manually described device.
func (a *API) ConfirmDevice(w http.ResponseWriter, r *http.Request) {
	var desc model.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	dev, err := a.devices.Confirm(r.Context(), desc)
	if err != nil {
		switch {
		case errors.Is(err, devicedomain.ErrDuplicateDevice):
			writeError(w, http.StatusConflict, "duplicate_device", "Device is already registered")
		case errors.Is(err, devicedomain.ErrValidation):
			writeError(w, http.StatusBadRequest, "invalid_descriptor", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "confirm_failed", err.Error())
		}
		return
	}
	a.monitor.TriggerSweep()
	writeJSON(w, http.StatusCreated, dev)
}

// ListDevices returns all registered devices.
func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	items, err := a.devices.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetDevice returns one device by id.
func (a *API) GetDevice(w http.ResponseWriter, r *http.Request, id string) {
	dev, err := a.devices.Get(r.Context(), id)
	if errors.Is(err, devicedomain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Device not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// DeleteDevice removes a registered device.
func (a *API) DeleteDevice(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.devices.Remove(r.Context(), id); err != nil {
		if errors.Is(err, devicedomain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// SetFavorite flips the favorite flag on a device.
func (a *API) SetFavorite(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		Favorite bool `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if err := a.devices.SetFavorite(r.Context(), id, payload.Favorite); err != nil {
		if errors.Is(err, devicedomain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "favorite_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// CheckDevice probes one device immediately and returns the outcome.
func (a *API) CheckDevice(w http.ResponseWriter, r *http.Request, id string) {
	online, err := a.monitor.CheckNow(r.Context(), id)
	if err != nil {
		if errors.Is(err, devicedomain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "check_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "online": online})
}
