package target

import (
	"context"

	"github.com/raspscan/raspscan/internal/model"
)

// TestResult reports a connectivity probe against a configured target.
type TestResult struct {
	TargetID string `json:"target_id"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail,omitempty"`
}

// Service exposes target use-cases. List and Get redact credentials;
// Resolve returns plaintext credentials and is reserved for the delivery path.
type Service interface {
	Create(ctx context.Context, t model.Target) (model.Target, error)
	Update(ctx context.Context, id string, t model.Target) (model.Target, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Target, error)
	Get(ctx context.Context, id string) (model.Target, error)
	Resolve(ctx context.Context, id string) (model.Target, error)
	Test(ctx context.Context, id string) (TestResult, error)
}
