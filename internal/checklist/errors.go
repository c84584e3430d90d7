package checklist

import "errors"

// Sentinel errors for checklist operations.
var (
	ErrNotFound    = errors.New("checklist not found")
	ErrNotWritable = errors.New("checklist not writable")
)
