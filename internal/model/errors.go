package model

import "errors"

// Sentinel error kinds. Callers classify failures with errors.Is; detail is
// attached by wrapping, e.g. fmt.Errorf("%w: url is empty", ErrValidation).
var (
	// ErrValidation covers malformed input: bad URLs, missing deliverables,
	// unknown unlock types.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a request id does not exist in the store.
	ErrNotFound = errors.New("request not found")
	// ErrInvalidTransition is returned when an operation is attempted from a
	// status that does not permit it.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrExternal wraps failures of external collaborators (analyzer, blob
	// store, mail).
	ErrExternal = errors.New("external service failed")
)
