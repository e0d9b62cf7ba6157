package target

import (
	"context"

	"github.com/raspscan/raspscan/internal/model"
)

// Repository defines persistent storage operations for delivery targets.
// Rows are stored exactly as given; the target service encrypts credential
// fields before they reach the repository.
type Repository interface {
	InsertTarget(ctx context.Context, t model.Target) error
	GetTarget(ctx context.Context, id string) (model.Target, error)
	ListTargets(ctx context.Context) ([]model.Target, error)
	UpdateTarget(ctx context.Context, t model.Target) error
	DeleteTarget(ctx context.Context, id string) error
}
