package repository

import (
	"errors"

	"github.com/okian/remindr/internal/domain/dedupe"
)

// Sentinel kinds for persistence errors.
var (
	ErrNotFound = dedupe.ErrNotFound
	ErrCorrupt  = errors.New("dedup state corrupt")
	ErrClosed   = errors.New("backend closed")
)
