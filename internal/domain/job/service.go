package job

import (
	"context"

	"github.com/raspscan/raspscan/internal/model"
)

// SubmitRequest carries everything needed to enqueue a job.
type SubmitRequest struct {
	Kind     model.JobKind
	DeviceID string
	TargetID *string
	Params   model.JobParams
}

// Service exposes orchestrator use-cases. All calls return in bounded time;
// device I/O happens on the execution pool.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Get(ctx context.Context, id string) (model.Job, error)
	List(ctx context.Context, filter ListFilter) ([]model.Job, error)
	Cancel(ctx context.Context, id string) error
	RetryDelivery(ctx context.Context, id string) error
}
