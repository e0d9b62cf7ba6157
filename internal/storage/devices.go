package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	devicedomain "github.com/raspscan/raspscan/internal/domain/device"
	"github.com/raspscan/raspscan/internal/model"
)

const deviceColumns = `id, class, name, make, model, uri, family, favorite, online, last_seen_at, created_at, updated_at`

// Insert stores a new device row. Returns ErrDuplicateDevice when the
// identifier is already taken.
func (r *Repository) Insert(ctx context.Context, dev model.Device) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE id = ? OR uri = ?`, dev.ID, dev.URI).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return devicedomain.ErrDuplicateDevice
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dev.ID,
		string(dev.Class),
		dev.Name,
		dev.Make,
		dev.Model,
		dev.URI,
		string(dev.Family),
		dev.Favorite,
		dev.Online,
		fromTimePtr(dev.LastSeenAt),
		dev.CreatedAt.UTC().Format(time.RFC3339Nano),
		dev.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns one device by id.
func (r *Repository) Get(ctx context.Context, id string) (model.Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	dev, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, devicedomain.ErrNotFound
	}
	return dev, err
}

// List returns all devices, favorites first, newest first within a group.
func (r *Repository) List(ctx context.Context) ([]model.Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+deviceColumns+` FROM devices
		ORDER BY favorite DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Device
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dev)
	}
	return out, rows.Err()
}

// Delete removes a device row for good.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return devicedomain.ErrNotFound
	}
	return nil
}

// SetFavorite flips the favorite flag.
func (r *Repository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET favorite = ?, updated_at = ? WHERE id = ?`,
		favorite, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return devicedomain.ErrNotFound
	}
	return nil
}

// MarkSeen updates online state and the last-seen timestamp in one statement.
// Zero affected rows is not an error: the device may have been removed while
// a health check was in flight.
func (r *Repository) MarkSeen(ctx context.Context, id string, online bool, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET online = ?, last_seen_at = ?, updated_at = ? WHERE id = ?`,
		online,
		at.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (model.Device, error) {
	var (
		dev                  model.Device
		class, family        string
		lastSeen             sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&dev.ID, &class, &dev.Name, &dev.Make, &dev.Model, &dev.URI, &family,
		&dev.Favorite, &dev.Online, &lastSeen, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Device{}, err
	}
	dev.Class = model.DeviceClass(class)
	dev.Family = model.ConnectionFamily(family)
	dev.LastSeenAt = toTimePtr(lastSeen)
	dev.CreatedAt = parseTime(createdAt)
	dev.UpdatedAt = parseTime(updatedAt)
	return dev, nil
}
