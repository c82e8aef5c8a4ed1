package dedupe

import "errors"

var (
	// ErrPersist marks a failed write of the dedup state. The in-memory set
	// still holds the ID that was being added.
	ErrPersist = errors.New("dedup persist failed")

	// ErrNotFound is returned by a Backend that has never been written.
	ErrNotFound = errors.New("dedup state not found")
)
