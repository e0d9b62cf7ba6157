package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Repository is the sqlite-backed implementation of the device, job and
// target repositories. A single writer connection keeps mutations serialized.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens the sqlite database and runs migrations.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	repo := &Repository{db: db, logger: logger}
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the active sqlite connection pool.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SQLDB returns the low-level sql.DB for callers requiring direct access.
func (r *Repository) SQLDB() *sql.DB {
	if r == nil {
		return nil
	}
	return r.db
}

func (r *Repository) migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			class TEXT NOT NULL,
			name TEXT NOT NULL,
			make TEXT NOT NULL,
			model TEXT NOT NULL,
			uri TEXT NOT NULL UNIQUE,
			family TEXT NOT NULL,
			favorite INTEGER NOT NULL DEFAULT 0,
			online INTEGER NOT NULL DEFAULT 0,
			last_seen_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			device_id TEXT NOT NULL,
			target_id TEXT,
			params_json TEXT NOT NULL,
			status TEXT NOT NULL,
			artifact_path TEXT,
			error TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS targets (
			id TEXT PRIMARY KEY,
			transport TEXT NOT NULL,
			name TEXT NOT NULL,
			config_json TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			favorite INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_device ON jobs(device_id);`,
		`CREATE INDEX IF NOT EXISTS idx_devices_class ON devices(class);`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}

func toTimePtr(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func fromTimePtr(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(time.RFC3339Nano)
}

func fromStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
