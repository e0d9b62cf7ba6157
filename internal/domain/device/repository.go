package device

import (
	"context"
	"time"

	"github.com/raspscan/raspscan/internal/model"
)

// Repository defines persistent storage operations for the device registry.
type Repository interface {
	Insert(ctx context.Context, dev model.Device) error
	Get(ctx context.Context, id string) (model.Device, error)
	List(ctx context.Context) ([]model.Device, error)
	Delete(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// MarkSeen atomically updates the online flag and last-seen timestamp.
	// A missing id is a no-op: a health result may race with removal.
	MarkSeen(ctx context.Context, id string, online bool, at time.Time) error
}
