package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	devicedomain "github.com/raspscan/raspscan/internal/domain/device"
	jobdomain "github.com/raspscan/raspscan/internal/domain/job"
	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/model"
)

func openRepo(t *testing.T) *Repository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("storage.New returned error: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleDevice(uri string) model.Device {
	now := time.Now().UTC()
	return model.Device{
		ID:        model.DeviceID(uri),
		Class:     model.DeviceClassScanner,
		Name:      "Canon TR8500",
		Make:      "Canon",
		Model:     "TR8500",
		URI:       uri,
		Family:    model.FamilyESCL,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDeviceInsertGetDelete(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	dev := sampleDevice("http://10.0.0.5/eSCL")

	if err := repo.Insert(ctx, dev); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	got, err := repo.Get(ctx, dev.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.URI != dev.URI || got.Class != dev.Class || got.Family != dev.Family {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := repo.Delete(ctx, dev.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := repo.Get(ctx, dev.ID); !errors.Is(err, devicedomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeviceDuplicateInsert(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	dev := sampleDevice("http://10.0.0.5/eSCL")

	if err := repo.Insert(ctx, dev); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := repo.Insert(ctx, dev); !errors.Is(err, devicedomain.ErrDuplicateDevice) {
		t.Fatalf("expected ErrDuplicateDevice, got %v", err)
	}

	other := sampleDevice("http://10.0.0.6/eSCL")
	other.ID = dev.ID
	if err := repo.Insert(ctx, other); !errors.Is(err, devicedomain.ErrDuplicateDevice) {
		t.Fatalf("id collision must be rejected, got %v", err)
	}
}

func TestDeviceListOrdersFavoritesFirst(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	first := sampleDevice("http://10.0.0.5/eSCL")
	second := sampleDevice("http://10.0.0.6/eSCL")
	second.Name = "Epson V39"
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := repo.Insert(ctx, second); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := repo.SetFavorite(ctx, second.ID, true); err != nil {
		t.Fatalf("SetFavorite returned error: %v", err)
	}

	listed, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != second.ID {
		t.Fatalf("favorite not listed first: %+v", listed)
	}
}

func TestMarkSeenMissingDeviceIsNoOp(t *testing.T) {
	repo := openRepo(t)
	if err := repo.MarkSeen(context.Background(), "dev-ghost", true, time.Now()); err != nil {
		t.Fatalf("MarkSeen on missing id must not error: %v", err)
	}
}

func TestMarkSeenUpdatesOnlineAndLastSeen(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	dev := sampleDevice("http://10.0.0.5/eSCL")
	if err := repo.Insert(ctx, dev); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	at := time.Now().UTC()
	if err := repo.MarkSeen(ctx, dev.ID, true, at); err != nil {
		t.Fatalf("MarkSeen returned error: %v", err)
	}
	got, err := repo.Get(ctx, dev.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !got.Online || got.LastSeenAt == nil {
		t.Fatalf("online state not persisted: %+v", got)
	}
}

func sampleJob(id string) model.Job {
	now := time.Now().UTC()
	return model.Job{
		ID:        id,
		Kind:      model.JobKindScan,
		DeviceID:  "dev-1",
		Params:    model.JobParams{DPI: 300, Format: "pdf"},
		Status:    model.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestJobLifecyclePersistence(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	j := sampleJob("job-1")

	if err := repo.InsertJob(ctx, j); err != nil {
		t.Fatalf("InsertJob returned error: %v", err)
	}

	artifact := "/data/scans/scan.pdf"
	j.Status = model.JobCompleted
	j.ArtifactPath = &artifact
	j.Attempts = 1
	if err := repo.UpdateJob(ctx, j); err != nil {
		t.Fatalf("UpdateJob returned error: %v", err)
	}

	got, err := repo.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if got.Status != model.JobCompleted || got.ArtifactPath == nil || *got.ArtifactPath != artifact {
		t.Fatalf("job round trip mismatch: %+v", got)
	}
	if got.Params.DPI != 300 {
		t.Fatalf("params lost: %+v", got.Params)
	}
}

func TestJobListFilters(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	queued := sampleJob("job-1")
	failed := sampleJob("job-2")
	failed.Status = model.JobFailed
	printJob := sampleJob("job-3")
	printJob.Kind = model.JobKindPrint
	printJob.DeviceID = "dev-2"
	for _, j := range []model.Job{queued, failed, printJob} {
		if err := repo.InsertJob(ctx, j); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	byStatus, err := repo.ListJobs(ctx, jobdomain.ListFilter{Status: model.JobFailed})
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != "job-2" {
		t.Fatalf("status filter returned %+v", byStatus)
	}

	byKind, err := repo.ListJobs(ctx, jobdomain.ListFilter{Kind: model.JobKindPrint})
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if len(byKind) != 1 || byKind[0].ID != "job-3" {
		t.Fatalf("kind filter returned %+v", byKind)
	}

	byDevice, err := repo.ListJobs(ctx, jobdomain.ListFilter{Device: "dev-1"})
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if len(byDevice) != 2 {
		t.Fatalf("device filter returned %d jobs", len(byDevice))
	}
}

func TestUpdateJobIfGuardsStoredState(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	j := sampleJob("job-1")
	if err := repo.InsertJob(ctx, j); err != nil {
		t.Fatalf("InsertJob returned error: %v", err)
	}

	stale := j
	stale.Status = model.JobRunning
	if err := repo.UpdateJobIf(ctx, stale, model.JobFailed); !errors.Is(err, jobdomain.ErrStateChanged) {
		t.Fatalf("expected ErrStateChanged, got %v", err)
	}
	got, err := repo.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if got.Status != model.JobQueued {
		t.Fatalf("guarded update mutated the row: %s", got.Status)
	}

	j.Status = model.JobRunning
	j.Attempts = 1
	if err := repo.UpdateJobIf(ctx, j, model.JobQueued); err != nil {
		t.Fatalf("UpdateJobIf returned error: %v", err)
	}
	got, err = repo.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if got.Status != model.JobRunning || got.Attempts != 1 {
		t.Fatalf("matching update not applied: %+v", got)
	}

	ghost := sampleJob("job-ghost")
	if err := repo.UpdateJobIf(ctx, ghost, model.JobQueued); !errors.Is(err, jobdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMissingJob(t *testing.T) {
	repo := openRepo(t)
	if err := repo.UpdateJob(context.Background(), sampleJob("job-ghost")); !errors.Is(err, jobdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTargetRoundTrip(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tgt := model.Target{
		ID:        "tgt-1",
		Transport: model.TransportSFTP,
		Name:      "nas",
		Config: model.TargetConfig{
			SFTP: &model.SFTPConfig{Host: "nas.local", Username: "scan", Password: "sealed", Dir: "/scans"},
		},
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.InsertTarget(ctx, tgt); err != nil {
		t.Fatalf("InsertTarget returned error: %v", err)
	}

	got, err := repo.GetTarget(ctx, "tgt-1")
	if err != nil {
		t.Fatalf("GetTarget returned error: %v", err)
	}
	if got.Config.SFTP == nil || got.Config.SFTP.Host != "nas.local" {
		t.Fatalf("config round trip mismatch: %+v", got.Config)
	}

	got.Name = "nas-renamed"
	got.Enabled = false
	if err := repo.UpdateTarget(ctx, got); err != nil {
		t.Fatalf("UpdateTarget returned error: %v", err)
	}
	updated, err := repo.GetTarget(ctx, "tgt-1")
	if err != nil {
		t.Fatalf("GetTarget returned error: %v", err)
	}
	if updated.Name != "nas-renamed" || updated.Enabled {
		t.Fatalf("update not persisted: %+v", updated)
	}

	if err := repo.DeleteTarget(ctx, "tgt-1"); err != nil {
		t.Fatalf("DeleteTarget returned error: %v", err)
	}
	if _, err := repo.GetTarget(ctx, "tgt-1"); !errors.Is(err, targetdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
