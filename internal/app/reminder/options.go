package reminder

import (
	"time"

	"github.com/okian/remindr/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithThreshold sets the notification lead time in minutes.
func WithThreshold(minutes int) Option {
	return func(s *Scheduler) {
		if minutes >= 0 {
			s.threshold = minutes
		}
	}
}

// WithMaxResults caps the events fetched per tick.
func WithMaxResults(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithLocation sets the display zone for start times.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}
