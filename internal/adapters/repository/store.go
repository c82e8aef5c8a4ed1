// Package repository persists the set of already-notified event IDs.
package repository

import (
	"context"

	"github.com/okian/remindr/internal/domain/dedupe"
)

// Backend stores a flat set of opaque event IDs.
//
// Save always receives the complete set and replaces what was stored before,
// so a successful return means the whole set is durable.
type Backend interface {
	// Load returns the stored IDs. A backend that has never been written
	// returns ErrNotFound; unreadable content returns ErrCorrupt.
	Load(ctx context.Context) ([]string, error)

	// Save replaces the stored set with ids.
	Save(ctx context.Context, ids []string) error

	// Close releases backend resources.
	Close() error
}

var (
	_ dedupe.Backend = (*FileBackend)(nil)
	_ dedupe.Backend = (*SQLiteBackend)(nil)
)
