package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raspscan/raspscan/internal/cleanup"
	devicedomain "github.com/raspscan/raspscan/internal/domain/device"
	jobdomain "github.com/raspscan/raspscan/internal/domain/job"
	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/events"
	"github.com/raspscan/raspscan/internal/health"
	"github.com/raspscan/raspscan/internal/httpapi/handlers"
	"github.com/raspscan/raspscan/internal/model"
)

type stubDiscovery struct {
	records []model.DiscoveryRecord
	err     error
}

func (s *stubDiscovery) Discover(context.Context) ([]model.DiscoveryRecord, error) {
	return s.records, s.err
}

type stubDevices struct {
	confirmErr error
	device     model.Device
	getErr     error
}

func (s *stubDevices) Confirm(_ context.Context, desc model.Descriptor) (model.Device, error) {
	if s.confirmErr != nil {
		return model.Device{}, s.confirmErr
	}
	return model.Device{ID: model.DeviceID(desc.URI), Name: desc.Name}, nil
}

func (s *stubDevices) List(context.Context) ([]model.Device, error) { return nil, nil }

func (s *stubDevices) Get(context.Context, string) (model.Device, error) {
	return s.device, s.getErr
}

func (s *stubDevices) Remove(context.Context, string) error { return s.getErr }

func (s *stubDevices) SetFavorite(context.Context, string, bool) error { return s.getErr }

func (s *stubDevices) MarkSeen(context.Context, string, bool, time.Time) error { return nil }

type stubMonitor struct{}

func (stubMonitor) StatusSnapshot() health.Status { return health.Status{MonitorActive: true} }

func (stubMonitor) CheckNow(context.Context, string) (bool, error) { return true, nil }

func (stubMonitor) TriggerSweep() {}

type stubJobs struct {
	submitErr error
	cancelErr error
	retryErr  error
}

func (s *stubJobs) Submit(context.Context, jobdomain.SubmitRequest) (string, error) {
	return "job-1", s.submitErr
}

func (s *stubJobs) Get(context.Context, string) (model.Job, error) {
	return model.Job{ID: "job-1"}, nil
}

func (s *stubJobs) List(context.Context, jobdomain.ListFilter) ([]model.Job, error) {
	return nil, nil
}

func (s *stubJobs) Cancel(context.Context, string) error { return s.cancelErr }

func (s *stubJobs) RetryDelivery(context.Context, string) error { return s.retryErr }

type stubTargets struct{}

func (stubTargets) Create(_ context.Context, t model.Target) (model.Target, error) { return t, nil }

func (stubTargets) Update(_ context.Context, _ string, t model.Target) (model.Target, error) {
	return t, nil
}

func (stubTargets) Delete(context.Context, string) error { return nil }

func (stubTargets) List(context.Context) ([]model.Target, error) { return nil, nil }

func (stubTargets) Get(context.Context, string) (model.Target, error) {
	return model.Target{}, targetdomain.ErrNotFound
}

func (stubTargets) Resolve(context.Context, string) (model.Target, error) {
	return model.Target{}, targetdomain.ErrNotFound
}

func (stubTargets) Test(context.Context, string) (targetdomain.TestResult, error) {
	return targetdomain.TestResult{}, targetdomain.ErrNotFound
}

func testRouter(t *testing.T, devices *stubDevices, jobs *stubJobs) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := handlers.New(
		&stubDiscovery{},
		devices,
		stubMonitor{},
		jobs,
		stubTargets{},
		cleanup.New(t.TempDir(), time.Hour, logger),
		model.DefaultScanProfiles(),
		logger,
	)
	return NewRouter(api, events.NewHub(logger))
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not an error envelope: %s", rec.Body.String())
	}
	return payload.Error.Code
}

func TestHealthzEndpoint(t *testing.T) {
	router := testRouter(t, &stubDevices{}, &stubJobs{})
	rec := doRequest(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestConfirmDuplicateMapsToConflict(t *testing.T) {
	router := testRouter(t, &stubDevices{confirmErr: devicedomain.ErrDuplicateDevice}, &stubJobs{})
	rec := doRequest(t, router, http.MethodPost, "/api/devices",
		`{"uri":"http://10.0.0.5/eSCL","name":"Canon","class":"scanner","family":"escl"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "duplicate_device" {
		t.Fatalf("error code = %q", code)
	}
}

func TestSubmitValidationMapsToBadRequest(t *testing.T) {
	router := testRouter(t, &stubDevices{}, &stubJobs{submitErr: jobdomain.ErrValidation})
	rec := doRequest(t, router, http.MethodPost, "/api/jobs", `{"kind":"scan","device_id":"dev-x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitAccepted(t *testing.T) {
	router := testRouter(t, &stubDevices{}, &stubJobs{})
	rec := doRequest(t, router, http.MethodPost, "/api/jobs", `{"kind":"scan","device_id":"dev-1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload.ID == "" {
		t.Fatalf("submit response missing id: %s", rec.Body.String())
	}
}

func TestCancelInvalidStateMapsToConflict(t *testing.T) {
	router := testRouter(t, &stubDevices{}, &stubJobs{cancelErr: jobdomain.ErrInvalidState})
	rec := doRequest(t, router, http.MethodPost, "/api/jobs/job-1/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRetryExpiredArtifactMapsToGone(t *testing.T) {
	router := testRouter(t, &stubDevices{}, &stubJobs{retryErr: jobdomain.ErrArtifactExpired})
	rec := doRequest(t, router, http.MethodPost, "/api/jobs/job-1/retry", "")
	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUnknownTargetMapsToNotFound(t *testing.T) {
	router := testRouter(t, &stubDevices{}, &stubJobs{})
	rec := doRequest(t, router, http.MethodGet, "/api/targets/tgt-ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestScanProfilesListed(t *testing.T) {
	router := testRouter(t, &stubDevices{}, &stubJobs{})
	rec := doRequest(t, router, http.MethodGet, "/api/scan/profiles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Items []model.ScanProfile `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || len(payload.Items) == 0 {
		t.Fatalf("profiles missing: %s", rec.Body.String())
	}
}
