package targets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/model"
	"github.com/raspscan/raspscan/internal/secrets"
)

type memTargetRepo struct {
	mu      sync.Mutex
	targets map[string]model.Target
}

func newMemTargetRepo() *memTargetRepo {
	return &memTargetRepo{targets: map[string]model.Target{}}
}

func (r *memTargetRepo) InsertTarget(_ context.Context, t model.Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[t.ID] = t
	return nil
}

func (r *memTargetRepo) GetTarget(_ context.Context, id string) (model.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return model.Target{}, targetdomain.ErrNotFound
	}
	return t, nil
}

func (r *memTargetRepo) ListTargets(_ context.Context) ([]model.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	return out, nil
}

func (r *memTargetRepo) UpdateTarget(_ context.Context, t model.Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[t.ID]; !ok {
		return targetdomain.ErrNotFound
	}
	r.targets[t.ID] = t
	return nil
}

func (r *memTargetRepo) DeleteTarget(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[id]; !ok {
		return targetdomain.ErrNotFound
	}
	delete(r.targets, id)
	return nil
}

func fixture(t *testing.T) (*Service, *memTargetRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	box, err := secrets.New("test-secret", t.TempDir(), logger)
	if err != nil {
		t.Fatalf("secrets.New returned error: %v", err)
	}
	repo := newMemTargetRepo()
	return New(repo, box, time.Second, logger), repo
}

func smbTarget() model.Target {
	return model.Target{
		Name:      "archive",
		Transport: model.TransportSMB,
		Enabled:   true,
		Config: model.TargetConfig{
			SMB: &model.SMBConfig{Connection: "nas/scans", Username: "scan", Password: "hunter2"},
		},
	}
}

func TestCreateEncryptsAtRestAndRedactsResponse(t *testing.T) {
	svc, repo := fixture(t)

	created, err := svc.Create(context.Background(), smbTarget())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !model.IsRedactedSecret(created.Config.SMB.Password) {
		t.Fatalf("create response leaks password: %q", created.Config.SMB.Password)
	}

	stored, err := repo.GetTarget(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetTarget returned error: %v", err)
	}
	if stored.Config.SMB.Password == "hunter2" || stored.Config.SMB.Password == "" {
		t.Fatalf("stored password not encrypted: %q", stored.Config.SMB.Password)
	}
}

func TestResolveReturnsPlaintext(t *testing.T) {
	svc, _ := fixture(t)
	created, err := svc.Create(context.Background(), smbTarget())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Config.SMB.Password != "hunter2" {
		t.Fatalf("Resolve password = %q", resolved.Config.SMB.Password)
	}

	read, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !model.IsRedactedSecret(read.Config.SMB.Password) {
		t.Fatalf("Get must redact, got %q", read.Config.SMB.Password)
	}
}

func TestUpdateKeepsSecretWhenMaskSubmitted(t *testing.T) {
	svc, _ := fixture(t)
	created, err := svc.Create(context.Background(), smbTarget())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Round-trip a redacted read back through update, as a UI would.
	payload, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	payload.Name = "archive-renamed"

	if _, err := svc.Update(context.Background(), created.ID, payload); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Name != "archive-renamed" {
		t.Fatalf("rename lost: %q", resolved.Name)
	}
	if resolved.Config.SMB.Password != "hunter2" {
		t.Fatalf("stored secret lost on redacted update: %q", resolved.Config.SMB.Password)
	}
}

func TestUpdateReplacesSecretWhenNewValueSubmitted(t *testing.T) {
	svc, _ := fixture(t)
	created, err := svc.Create(context.Background(), smbTarget())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	next := smbTarget()
	next.Config.SMB.Password = "correct-horse"
	if _, err := svc.Update(context.Background(), created.ID, next); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved.Config.SMB.Password != "correct-horse" {
		t.Fatalf("new secret not stored: %q", resolved.Config.SMB.Password)
	}
}

func TestCreateRejectsInvalidTarget(t *testing.T) {
	svc, _ := fixture(t)
	bad := smbTarget()
	bad.Config.SMB.Connection = ""
	if _, err := svc.Create(context.Background(), bad); !errors.Is(err, targetdomain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteMissingTarget(t *testing.T) {
	svc, _ := fixture(t)
	if err := svc.Delete(context.Background(), "tgt-ghost"); !errors.Is(err, targetdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTestReportsUnreachableEndpoint(t *testing.T) {
	svc, _ := fixture(t)
	created, err := svc.Create(context.Background(), smbTarget())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	result, err := svc.Test(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Test returned error: %v", err)
	}
	if result.OK {
		t.Fatalf("test against unreachable host reported ok")
	}
	if strings.TrimSpace(result.Detail) == "" {
		t.Fatalf("failure detail missing")
	}
}
