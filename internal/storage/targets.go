package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	targetdomain "github.com/raspscan/raspscan/internal/domain/target"
	"github.com/raspscan/raspscan/internal/model"
)

const targetColumns = `id, transport, name, config_json, enabled, favorite, created_at, updated_at`

// InsertTarget stores a new target row. Config is persisted exactly as given;
// the target service encrypts credential fields before calling in.
func (r *Repository) InsertTarget(ctx context.Context, t model.Target) error {
	cfg, err := json.Marshal(t.Config)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO targets (`+targetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		string(t.Transport),
		t.Name,
		string(cfg),
		t.Enabled,
		t.Favorite,
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
		t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetTarget returns one target by id.
func (r *Repository) GetTarget(ctx context.Context, id string) (model.Target, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = ?`, id)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Target{}, targetdomain.ErrNotFound
	}
	return t, err
}

// ListTargets returns all targets, favorites first.
func (r *Repository) ListTargets(ctx context.Context) ([]model.Target, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+targetColumns+` FROM targets
		ORDER BY favorite DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTarget rewrites a target row.
func (r *Repository) UpdateTarget(ctx context.Context, t model.Target) error {
	cfg, err := json.Marshal(t.Config)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE targets SET
			transport = ?, name = ?, config_json = ?, enabled = ?, favorite = ?, updated_at = ?
		WHERE id = ?`,
		string(t.Transport),
		t.Name,
		string(cfg),
		t.Enabled,
		t.Favorite,
		time.Now().UTC().Format(time.RFC3339Nano),
		t.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return targetdomain.ErrNotFound
	}
	return nil
}

// DeleteTarget removes a target row.
func (r *Repository) DeleteTarget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return targetdomain.ErrNotFound
	}
	return nil
}

func scanTarget(row rowScanner) (model.Target, error) {
	var (
		t                    model.Target
		transport, cfg       string
		createdAt, updatedAt string
	)
	err := row.Scan(&t.ID, &transport, &t.Name, &cfg, &t.Enabled, &t.Favorite, &createdAt, &updatedAt)
	if err != nil {
		return model.Target{}, err
	}
	t.Transport = model.Transport(transport)
	if err := json.Unmarshal([]byte(cfg), &t.Config); err != nil {
		return model.Target{}, err
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}
