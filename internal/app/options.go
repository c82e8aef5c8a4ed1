package service

import (
	"time"

	"github.com/okian/remindr/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScheduler sets the reminder loop.
func WithScheduler(r SchedulerLoop) Option {
	return func(s *Service) {
		s.scheduler = r
	}
}

// WithCommandLoop sets the command loop.
func WithCommandLoop(c CommandLoop) Option {
	return func(s *Service) {
		s.commands = c
	}
}

// WithStore sets the dedup store flushed on Stop.
func WithStore(st Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithRestart makes a loop that exits or panics start again after the
// restart delay.
func WithRestart(enabled bool) Option {
	return func(s *Service) {
		s.restart = enabled
	}
}

// WithRestartDelay sets the pause before a loop restart.
func WithRestartDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.restartDelay = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
