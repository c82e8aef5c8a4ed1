package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotConfigured   = errors.New("service missing a required component")
	ErrShutdownTimeout = errors.New("loops did not stop before the shutdown deadline")
	ErrLoopPanic       = errors.New("loop panicked")
)
