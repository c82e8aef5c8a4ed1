package cli

import "errors"

var (
	// ErrInvalidFormat is returned for an unknown --format value.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrTickFailed is returned by check when the calendar could not be read.
	ErrTickFailed = errors.New("reminder tick failed")
)
