package device

import (
	"context"
	"time"

	"github.com/raspscan/raspscan/internal/model"
)

// Service exposes registry use-cases used by HTTP, discovery and health layers.
type Service interface {
	Confirm(ctx context.Context, desc model.Descriptor) (model.Device, error)
	List(ctx context.Context) ([]model.Device, error)
	Get(ctx context.Context, id string) (model.Device, error)
	Remove(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	MarkSeen(ctx context.Context, id string, online bool, at time.Time) error
}
