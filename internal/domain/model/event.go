// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"time"
)

// Event is a single concrete calendar entry as returned by a calendar gateway.
// Recurring series arrive already expanded, one Event per instance.
type Event struct {
	ID          string    // unique within the calendar, stable per instance
	Title       string    // summary line
	Start       time.Time // start instant; midnight in the calendar zone for all-day events
	AllDay      bool      // date-only start, never reminded
	Location    string    // optional
	Description string    // optional free text
	Link        string    // optional URL to the event page
}

// Message is the part of an inbound update the daemon understands.
type Message struct {
	ChatID int64
	Text   string
}

// Update is one inbound item from the messaging service.
// Message is nil for update kinds the daemon does not handle.
type Update struct {
	ID      int64
	Message *Message
}

// MinutesUntil returns the whole minutes from now until start, rounded half up.
// An event that began less than 30 seconds ago yields 0.
func MinutesUntil(start, now time.Time) int {
	return int(math.Floor(start.Sub(now).Minutes() + 0.5))
}

// Eligible reports whether minutesUntil falls in [0, threshold].
func Eligible(minutesUntil, threshold int) bool {
	return minutesUntil >= 0 && minutesUntil <= threshold
}

// Bucket thresholds in minutes.
const (
	minutesPerHour = 60
	minutesPerDay  = 1440
)

// RelativeBucket renders a human-readable time-to-start.
// Anything at or below threshold (including already-started events) is "soon".
func RelativeBucket(minutesUntil, threshold int) string {
	switch {
	case minutesUntil <= threshold:
		return "soon"
	case minutesUntil <= minutesPerHour:
		return fmt.Sprintf("in %d min", minutesUntil)
	case minutesUntil <= minutesPerDay:
		return fmt.Sprintf("in %d h", roundDiv(minutesUntil, minutesPerHour))
	default:
		days := roundDiv(minutesUntil, minutesPerDay)
		if days == 1 {
			return "in 1 day"
		}
		return fmt.Sprintf("in %d days", days)
	}
}

func roundDiv(n, d int) int {
	return int(math.Floor(float64(n)/float64(d) + 0.5))
}
