package loop

import "errors"

// Sentinel errors for loop runs.
var (
	// ErrPreflight aborts a run before any iteration.
	ErrPreflight = errors.New("preflight failed")
	// ErrFaulted marks an I/O failure in the middle of a run.
	ErrFaulted = errors.New("run faulted")
)
