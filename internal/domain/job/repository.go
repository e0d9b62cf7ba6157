package job

import (
	"context"

	"github.com/raspscan/raspscan/internal/model"
)

// ListFilter applies job list query constraints.
type ListFilter struct {
	Kind   model.JobKind
	Status model.JobStatus
	Device string
}

// Repository defines persistent storage operations for jobs.
type Repository interface {
	InsertJob(ctx context.Context, j model.Job) error
	GetJob(ctx context.Context, id string) (model.Job, error)
	ListJobs(ctx context.Context, filter ListFilter) ([]model.Job, error)
	UpdateJob(ctx context.Context, j model.Job) error

	// UpdateJobIf rewrites the job only while its stored status still equals
	// expect. ErrStateChanged reports a lost race; the row is left untouched.
	UpdateJobIf(ctx context.Context, j model.Job, expect model.JobStatus) error
}
