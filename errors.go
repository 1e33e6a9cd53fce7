package tabletalk

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrNotReady indicates the tool backend connection has not completed
	// initialization.
	ErrNotReady = errors.New("tool backend not ready")

	// ErrEmptyCatalog indicates the backend returned no tools.
	ErrEmptyCatalog = errors.New("empty tool catalog")
)
