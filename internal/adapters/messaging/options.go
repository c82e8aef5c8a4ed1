package messaging

import (
	"net/http"
	"strings"
	"time"
)

// Option applies a configuration option to Telegram.
type Option func(*Telegram)

// WithAPIURL overrides the Bot API base URL.
func WithAPIURL(base string) Option {
	return func(t *Telegram) {
		if base != "" {
			t.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its timeout must exceed the
// long-poll timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Telegram) {
		if c != nil {
			t.client = c
		}
	}
}

// WithLongPollTimeout sizes the default client timeout for getUpdates.
func WithLongPollTimeout(d time.Duration) Option {
	return func(t *Telegram) {
		if d > 0 {
			t.longPoll = d
		}
	}
}
