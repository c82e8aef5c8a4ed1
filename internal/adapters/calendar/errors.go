package calendar

import "errors"

// Sentinel kinds for calendar gateway errors.
var (
	ErrAuth     = errors.New("calendar authorization failed")
	ErrUpstream = errors.New("calendar upstream error")
	ErrConfig   = errors.New("calendar gateway misconfigured")
)
