package commands

import (
	"time"

	"github.com/okian/remindr/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithLongPollTimeout sets the server-side wait of each poll.
func WithLongPollTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d >= time.Second {
			l.longPoll = d
		}
	}
}

// WithRetryDelay sets the pause after a failed poll.
func WithRetryDelay(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}

// WithListLimit caps the events shown by /events.
func WithListLimit(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.listLimit = n
		}
	}
}

// WithThreshold sets the minutes rendered as "soon".
func WithThreshold(minutes int) Option {
	return func(l *Loop) {
		if minutes >= 0 {
			l.threshold = minutes
		}
	}
}

// WithLocation sets the display zone for listed events.
func WithLocation(loc *time.Location) Option {
	return func(l *Loop) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) {
		l.logger = lg
	}
}
