package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	jobdomain "github.com/raspscan/raspscan/internal/domain/job"
	"github.com/raspscan/raspscan/internal/model"
)

const jobColumns = `id, kind, device_id, target_id, params_json, status, artifact_path, error, attempts, created_at, updated_at`

// InsertJob stores a new job row.
func (r *Repository) InsertJob(ctx context.Context, j model.Job) error {
	params, err := json.Marshal(j.Params)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID,
		string(j.Kind),
		j.DeviceID,
		fromStringPtr(j.TargetID),
		string(params),
		string(j.Status),
		fromStringPtr(j.ArtifactPath),
		fromStringPtr(j.Error),
		j.Attempts,
		j.CreatedAt.UTC().Format(time.RFC3339Nano),
		j.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetJob returns one job by id.
func (r *Repository) GetJob(ctx context.Context, id string) (model.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, jobdomain.ErrNotFound
	}
	return j, err
}

// ListJobs returns jobs matching the filter, newest first.
func (r *Repository) ListJobs(ctx context.Context, filter jobdomain.ListFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Device != "" {
		query += ` AND device_id = ?`
		args = append(args, filter.Device)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// UpdateJob rewrites the mutable job fields.
func (r *Repository) UpdateJob(ctx context.Context, j model.Job) error {
	params, err := json.Marshal(j.Params)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = ?, artifact_path = ?, error = ?, attempts = ?, params_json = ?, updated_at = ?
		WHERE id = ?`,
		string(j.Status),
		fromStringPtr(j.ArtifactPath),
		fromStringPtr(j.Error),
		j.Attempts,
		string(params),
		time.Now().UTC().Format(time.RFC3339Nano),
		j.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return jobdomain.ErrNotFound
	}
	return nil
}

// UpdateJobIf is the compare-and-set variant of UpdateJob: the row is only
// rewritten while its status column still matches expect. Workers claiming a
// queued job and cancel requests both go through this so neither can clobber
// the other's transition.
func (r *Repository) UpdateJobIf(ctx context.Context, j model.Job, expect model.JobStatus) error {
	params, err := json.Marshal(j.Params)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = ?, artifact_path = ?, error = ?, attempts = ?, params_json = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(j.Status),
		fromStringPtr(j.ArtifactPath),
		fromStringPtr(j.Error),
		j.Attempts,
		string(params),
		time.Now().UTC().Format(time.RFC3339Nano),
		j.ID,
		string(expect),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetJob(ctx, j.ID); err != nil {
			return err
		}
		return jobdomain.ErrStateChanged
	}
	return nil
}

func scanJob(row rowScanner) (model.Job, error) {
	var (
		j                      model.Job
		kind, status, params   string
		targetID, artifact     sql.NullString
		jobErr                 sql.NullString
		createdAt, updatedAt   string
	)
	err := row.Scan(
		&j.ID, &kind, &j.DeviceID, &targetID, &params, &status,
		&artifact, &jobErr, &j.Attempts, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Job{}, err
	}
	j.Kind = model.JobKind(kind)
	j.Status = model.JobStatus(status)
	j.TargetID = strPtr(targetID)
	j.ArtifactPath = strPtr(artifact)
	j.Error = strPtr(jobErr)
	if err := json.Unmarshal([]byte(params), &j.Params); err != nil {
		return model.Job{}, err
	}
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return j, nil
}
