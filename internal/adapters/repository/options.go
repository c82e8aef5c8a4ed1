package repository

import (
	"os"
	"time"
)

// FileOption applies a configuration option to the FileBackend.
type FileOption func(*FileBackend)

// WithFileMode sets the permission bits of the state file.
func WithFileMode(mode os.FileMode) FileOption {
	return func(b *FileBackend) {
		if mode != 0 {
			b.mode = mode
		}
	}
}

// SQLiteOption applies a configuration option to the SQLiteBackend.
type SQLiteOption func(*SQLiteBackend)

// WithClock overrides the time source used for notified_at.
func WithClock(now func() time.Time) SQLiteOption {
	return func(b *SQLiteBackend) {
		if now != nil {
			b.now = now
		}
	}
}
