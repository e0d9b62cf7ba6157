package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/model"
)

// ListTargets returns all delivery targets with credentials redacted.
func (a *API) ListTargets(w http.ResponseWriter, r *http.Request) {
	items, err := a.targets.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetTarget returns one target with credentials redacted.
func (a *API) GetTarget(w http.ResponseWriter, r *http.Request, id string) {
	t, err := a.targets.Get(r.Context(), id)
	if errors.Is(err, targetdomain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Target not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTarget persists a new delivery target.
func (a *API) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var payload model.Target
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	t, err := a.targets.Create(r.Context(), payload)
	if err != nil {
		if errors.Is(err, targetdomain.ErrValidation) {
			writeError(w, http.StatusBadRequest, "invalid_target", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTarget replaces a delivery target.
func (a *API) UpdateTarget(w http.ResponseWriter, r *http.Request, id string) {
	var payload model.Target
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	t, err := a.targets.Update(r.Context(), id, payload)
	if err != nil {
		switch {
		case errors.Is(err, targetdomain.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Target not found")
		case errors.Is(err, targetdomain.ErrValidation):
			writeError(w, http.StatusBadRequest, "invalid_target", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "update_failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTarget removes a delivery target.
func (a *API) DeleteTarget(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.targets.Delete(r.Context(), id); err != nil {
		if errors.Is(err, targetdomain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Target not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// TestTarget probes target endpoint reachability without sending a document.
func (a *API) TestTarget(w http.ResponseWriter, r *http.Request, id string) {
	result, err := a.targets.Test(r.Context(), id)
	if err != nil {
		if errors.Is(err, targetdomain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Target not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "test_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
