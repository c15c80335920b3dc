/*
errors.go - Centralized error types for the bond engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Construction errors - Offsets / maturities built without components
  2. Validation errors - Precondition violations reported at the call site
  3. Lookup errors - Reference rate not available for the requested day
  4. Store errors - Persistence-level failures (sqlite)

SOFT FALLBACK:
  An unregistered rate series is NOT an error. The rate store logs a warning
  and uses the default series' lookup convention instead.

USAGE:
  Domain packages can wrap generic errors:

    if errors.Is(err, generic.ErrRateNotAvailable) {
        var lookupErr *rates.LookupError
        errors.As(err, &lookupErr)
        ...
    }

SEE ALSO:
  - offset.go: Construction errors
  - rates/store.go: Lookup errors
  - bond/bond.go: Validation errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConstruction is returned when an Offset or Maturity is built without
	// any component. Not recoverable: fix the caller.
	ErrConstruction = errors.New("construction error")

	// ErrValidation is returned for precondition violations: till date not
	// after the buy date, value/period count mismatch, non-scalar daily value,
	// malformed extended range.
	ErrValidation = errors.New("validation error")

	// ErrUnsupportedPeriod is returned for a period type the operation does
	// not handle (e.g. a daily reset period on a bond).
	ErrUnsupportedPeriod = errors.New("unsupported period")

	// ErrRateNotAvailable is returned when a reference rate lookup resolves to
	// a day outside the populated range of the series.
	ErrRateNotAvailable = errors.New("rate not available")

	// ErrBondNotFound is returned when a saved bond definition doesn't exist.
	ErrBondNotFound = errors.New("bond not found")

	// ErrSnapshotNotFound is returned when no rate snapshot has been saved.
	ErrSnapshotNotFound = errors.New("rate snapshot not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending argument.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError with a formatted message.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrConstruction) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnsupportedPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBondNotFound) ||
		errors.Is(err, ErrSnapshotNotFound)
}
