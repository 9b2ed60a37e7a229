package settlement

import "errors"

var (
	// ErrConflict is returned when a concurrent settlement for the same
	// period won the period unique key. The caller may retry with force or
	// treat the existing pool as authoritative.
	ErrConflict = errors.New("settlement already exists for period")

	// ErrNotPrivileged is returned when a forced recomputation is requested
	// by an operator without privilege. Forced recompute is destructive and
	// restricted to trusted callers.
	ErrNotPrivileged = errors.New("forced recompute requires a privileged operator")
)
