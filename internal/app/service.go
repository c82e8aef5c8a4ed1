// Package service supervises the reminder scheduler and the command loop
// and owns the shutdown path.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/remindr/internal/app/reminder"
	"github.com/okian/remindr/pkg/logger"
	"github.com/okian/remindr/pkg/metrics"
)

const (
	defaultRestartDelay = 5 * time.Second

	loopReminder = "reminder"
	loopCommands = "commands"
)

// SchedulerLoop is the periodic reminder task.
type SchedulerLoop interface {
	Run(ctx context.Context) error
	Last() (time.Time, reminder.TickResult)
}

// CommandLoop is the long-poll command task.
type CommandLoop interface {
	Run(ctx context.Context) error
	Cursor() int64
}

// Store is the dedup store as seen by the supervisor.
type Store interface {
	Flush(ctx context.Context) error
	Size() int64
	IDs() []string
}

// Stats is a point-in-time view of the running daemon.
type Stats struct {
	Started    bool                `json:"started"`
	DedupSize  int64               `json:"dedup_size"`
	Cursor     int64               `json:"cursor"`
	LastTick   time.Time           `json:"last_tick"`
	LastResult reminder.TickResult `json:"last_result"`
}

// Service runs both loops concurrently and flushes the store exactly once
// on Stop.
type Service struct {
	mu sync.RWMutex

	scheduler SchedulerLoop
	commands  CommandLoop
	store     Store

	restart      bool
	restartDelay time.Duration

	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	flushed sync.Once

	logger logger.Logger
}

// New constructs a Service. Start fails unless both loops and the store
// are provided.
func New(opts ...Option) *Service {
	s := &Service{
		restartDelay: defaultRestartDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches both loops in their own goroutines and returns.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.scheduler == nil || s.commands == nil || s.store == nil {
		return ErrNotConfigured
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.supervise(runCtx, loopReminder, s.scheduler.Run)
	go s.supervise(runCtx, loopCommands, s.commands.Run)

	s.started = true
	s.logger.Info(ctx, "remindr service started",
		logger.Bool("restart_loops", s.restart),
		logger.Int64("dedup_size", s.store.Size()),
	)
	return nil
}

// supervise runs fn until ctx ends. Exits and panics are logged and, when
// restart is enabled, followed by another run after the restart delay.
func (s *Service) supervise(ctx context.Context, name string, fn func(context.Context) error) {
	defer s.wg.Done()
	log := s.logger.Named(name)

	for {
		err := runGuarded(ctx, fn)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error(ctx, "loop terminated", logger.Error(err))
		} else {
			log.Warn(ctx, "loop returned unexpectedly")
		}
		if !s.restart {
			return
		}

		t := time.NewTimer(s.restartDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		metrics.RecordLoopRestart(name)
		log.Info(ctx, "restarting loop", logger.Duration("delay", s.restartDelay))
	}
}

func runGuarded(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLoopPanic, r)
		}
	}()
	return fn(ctx)
}

// Stop cancels both loops, waits for them until ctx expires, then flushes
// the store. The flush runs once no matter how often Stop is called.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	wasStarted := s.started
	s.started = false
	s.mu.Unlock()

	var waitErr error
	if wasStarted {
		s.logger.Info(ctx, "stopping remindr service...")
		cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			waitErr = fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
			s.logger.Warn(ctx, "loops still running at shutdown deadline")
		}
	}

	var flushErr error
	if s.store != nil {
		s.flushed.Do(func() {
			flushErr = s.store.Flush(context.WithoutCancel(ctx))
		})
	}

	if s.logger != nil && wasStarted {
		s.logger.Info(ctx, "remindr service stopped")
	}
	if waitErr != nil {
		return waitErr
	}
	return flushErr
}

// Stats returns the current daemon state.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Started: s.started}
	if s.store != nil {
		st.DedupSize = s.store.Size()
	}
	if s.commands != nil {
		st.Cursor = s.commands.Cursor()
	}
	if s.scheduler != nil {
		st.LastTick, st.LastResult = s.scheduler.Last()
	}
	return st
}

// NotifiedIDs returns the sorted IDs already reminded.
func (s *Service) NotifiedIDs() []string {
	if s.store == nil {
		return nil
	}
	return s.store.IDs()
}
