package device

import "errors"

var (
	// ErrNotFound indicates a missing device id.
	ErrNotFound = errors.New("device not found")
	// ErrDuplicateDevice indicates a confirm for an identifier that already exists.
	ErrDuplicateDevice = errors.New("device already registered")
	// ErrValidation indicates a descriptor rejected before any state mutation.
	ErrValidation = errors.New("invalid device descriptor")
)
