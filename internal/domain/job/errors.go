package job

import "errors"

var (
	// ErrNotFound indicates a missing job id.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidState indicates an action that is illegal for the job's
	// current state machine position.
	ErrInvalidState = errors.New("invalid job state")
	// ErrArtifactExpired indicates a delivery retry whose underlying file was
	// already reaped.
	ErrArtifactExpired = errors.New("job artifact expired")
	// ErrValidation indicates a submit rejected before any state mutation.
	ErrValidation = errors.New("invalid job request")
	// ErrStateChanged indicates a guarded update that lost the race against a
	// concurrent writer: the stored status no longer matches the expected one.
	ErrStateChanged = errors.New("job state changed")
)
