package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	jobdomain "github.com/raspscan/raspscan/internal/domain/job"
	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/model"
)

// SubmitJob enqueues a scan/print job and returns its id immediately.
func (a *API) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Kind     model.JobKind   `json:"kind"`
		DeviceID string          `json:"device_id"`
		TargetID *string         `json:"target_id,omitempty"`
		Params   model.JobParams `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}

	id, err := a.jobs.Submit(r.Context(), jobdomain.SubmitRequest{
		Kind:     payload.Kind,
		DeviceID: payload.DeviceID,
		TargetID: payload.TargetID,
		Params:   payload.Params,
	})
	if err != nil {
		switch {
		case errors.Is(err, jobdomain.ErrValidation):
			writeError(w, http.StatusBadRequest, "invalid_job", err.Error())
		case errors.Is(err, targetdomain.ErrDisabled):
			writeError(w, http.StatusConflict, "target_disabled", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "submit_failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

// ListJobs returns jobs newest first, optionally filtered by kind, status and
// device.
func (a *API) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobdomain.ListFilter{
		Kind:   model.JobKind(r.URL.Query().Get("kind")),
		Status: model.JobStatus(r.URL.Query().Get("status")),
		Device: r.URL.Query().Get("device"),
	}
	items, err := a.jobs.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetJob returns one job by id.
func (a *API) GetJob(w http.ResponseWriter, r *http.Request, id string) {
	j, err := a.jobs.Get(r.Context(), id)
	if errors.Is(err, jobdomain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// CancelJob stops a queued or running job.
func (a *API) CancelJob(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.jobs.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, jobdomain.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Job not found")
		case errors.Is(err, jobdomain.ErrInvalidState):
			writeError(w, http.StatusConflict, "invalid_state", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "cancel_failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// RetryJob re-runs the delivery leg of a job whose delivery failed.
func (a *API) RetryJob(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.jobs.RetryDelivery(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, jobdomain.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Job not found")
		case errors.Is(err, jobdomain.ErrInvalidState):
			writeError(w, http.StatusConflict, "invalid_state", err.Error())
		case errors.Is(err, jobdomain.ErrArtifactExpired):
			writeError(w, http.StatusGone, "artifact_expired", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "retry_failed", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
