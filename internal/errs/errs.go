// Package errs defines the closed error-kind taxonomy shared by every
// component of the VA-File engine. Callers branch on kind with errors.Is;
// every public entry point wraps one of these sentinels with fmt.Errorf to
// add context instead of inventing a new error type per package.
package errs

import "errors"

var (
	// ErrBadVector covers NaN components, wrong element type, or an empty vector.
	ErrBadVector = errors.New("bad vector")

	// ErrDimensionMismatch marks sample widths that disagree beyond the first reduction.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInsufficientSamples is returned when fewer than the minimum usable rows were sampled.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrBadQuery covers an invalid norm, a missing limit, or a stale-index refusal.
	ErrBadQuery = errors.New("bad query")

	// ErrCorrupted covers a bad magic number or an unreadable page.
	ErrCorrupted = errors.New("corrupted index")

	// ErrBadDistance marks a distance-resolution failure.
	ErrBadDistance = errors.New("bad distance")

	// ErrBadNormalization marks an arity mismatch or missing persisted parameters.
	ErrBadNormalization = errors.New("bad normalization")

	// ErrCancelled is returned when an operation observes context cancellation between pages.
	ErrCancelled = errors.New("cancelled")

	// ErrNotFound marks a missing relation or namespace.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists marks a relation create against a name already in use.
	ErrAlreadyExists = errors.New("already exists")

	// ErrQuotaExceeded marks a tenant dimension/vector/rate quota violation.
	ErrQuotaExceeded = errors.New("quota exceeded")
)
