package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrNotReady = errors.New("service not started")
	ErrPanic    = errors.New("handler panicked")
)
