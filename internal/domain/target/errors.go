package target

import "errors"

var (
	// ErrNotFound indicates a missing target id.
	ErrNotFound = errors.New("target not found")
	// ErrValidation indicates a target payload rejected before persistence.
	ErrValidation = errors.New("invalid target")
	// ErrDisabled indicates a job submission referencing a disabled target.
	ErrDisabled = errors.New("target disabled")
)
