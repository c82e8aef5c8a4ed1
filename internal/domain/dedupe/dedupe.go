// Package dedupe tracks which events have already been reminded.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/okian/remindr/pkg/logger"
	"github.com/okian/remindr/pkg/metrics"
)

// Deduper records notified event IDs so each event is reminded once.
type Deduper interface {
	// Contains reports whether id was already notified.
	Contains(ctx context.Context, id string) bool

	// Add records id and rewrites the persisted set. The in-memory set is
	// updated even when persistence fails; the error wraps ErrPersist.
	Add(ctx context.Context, id string) error

	// Flush rewrites the persisted set from memory. Idempotent.
	Flush(ctx context.Context) error

	Size() int64
}

// Backend persists the notified set. Save receives the complete set and
// replaces what was stored before. Load on a never-written backend returns
// an error wrapping ErrNotFound.
type Backend interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// Store is the persisted Deduper. IDs are only ever added.
type Store struct {
	mu      sync.RWMutex
	seen    map[string]struct{}
	order   []string // insertion order, written as-is
	backend Backend
	size    atomic.Int64
	logger  logger.Logger
}

// New creates a Store over backend. Call Load before use.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		seen:    make(map[string]struct{}),
		backend: backend,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("dedupe")
	}
	return s
}

// Load replaces the in-memory set with the persisted one. A missing or
// unreadable state leaves the set empty and logs a warning; it never fails.
func (s *Store) Load(ctx context.Context) {
	ids, err := s.backend.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = make(map[string]struct{}, len(ids))
	s.order = s.order[:0]

	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Warn(ctx, "no dedup state found, starting empty")
	case err != nil:
		s.logger.Warn(ctx, "dedup state unreadable, starting empty", logger.Error(err))
	default:
		for _, id := range ids {
			if _, ok := s.seen[id]; ok {
				continue
			}
			s.seen[id] = struct{}{}
			s.order = append(s.order, id)
		}
		s.logger.Info(ctx, "dedup state loaded", logger.Int("ids", len(s.order)))
	}

	s.size.Store(int64(len(s.order)))
	metrics.UpdateDedupSize(s.size.Load())
}

// Contains reports whether id was already notified.
func (s *Store) Contains(_ context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// Add records id and synchronously persists the full set. Adding a known id
// is a no-op and does not write.
func (s *Store) Add(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return nil
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	s.size.Store(int64(len(s.order)))
	metrics.UpdateDedupSize(s.size.Load())

	return s.persistLocked(ctx)
}

// Flush persists the current set.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// persistLocked must be called with s.mu held.
func (s *Store) persistLocked(ctx context.Context) error {
	snapshot := make([]string, len(s.order))
	copy(snapshot, s.order)

	if err := s.backend.Save(ctx, snapshot); err != nil {
		metrics.RecordDedupPersistError()
		s.logger.Error(ctx, "dedup state write failed; keeping in-memory state",
			logger.Int("ids", len(snapshot)),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Size returns the number of notified IDs.
func (s *Store) Size() int64 {
	return s.size.Load()
}

// IDs returns a sorted copy of the notified IDs.
func (s *Store) IDs() []string {
	s.mu.RLock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}
