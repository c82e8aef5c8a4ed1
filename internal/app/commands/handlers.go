package commands

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/okian/remindr/internal/domain/model"
	"github.com/okian/remindr/pkg/logger"
	"github.com/okian/remindr/pkg/metrics"
)

// Replies sent by the handlers.
const (
	HelpText = "I send a reminder shortly before each calendar event.\n\n" +
		"/events - list upcoming events\n" +
		"/help - show this message"
	NoEventsText   = "No upcoming events."
	FetchErrorText = "Could not fetch events, try again later."
)

// Command names matched exactly against message text.
const (
	cmdStart  = "/start"
	cmdHelp   = "/help"
	cmdEvents = "/events"
)

type handler func(ctx context.Context, chatID int64) error

func (l *Loop) handlers() map[string]handler {
	return map[string]handler{
		cmdStart:  l.handleHelp,
		cmdHelp:   l.handleHelp,
		cmdEvents: l.handleEvents,
	}
}

func (l *Loop) handleHelp(ctx context.Context, chatID int64) error {
	return l.sender.Send(ctx, chatID, HelpText)
}

// handleEvents lists upcoming events. It only reads the calendar.
func (l *Loop) handleEvents(ctx context.Context, chatID int64) error {
	now := l.now()
	events, err := l.calendar.ListUpcoming(ctx, now, l.listLimit)
	if err != nil {
		metrics.RecordCalendarFetchError("commands")
		l.logger.Error(ctx, "calendar fetch for /events failed", logger.Error(err))
		return l.sender.Send(ctx, chatID, FetchErrorText)
	}
	return l.sender.Send(ctx, chatID, FormatList(events, now, l.threshold, l.location))
}

// FormatList renders events as one HTML line each with a relative bucket.
func FormatList(events []model.Event, now time.Time, threshold int, loc *time.Location) string {
	if len(events) == 0 {
		return NoEventsText
	}
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString("<b>Upcoming events</b>")
	for _, ev := range events {
		title := ev.Title
		if title == "" {
			title = "(no title)"
		}
		var when string
		if ev.AllDay {
			when = "all day " + ev.Start.Format("Mon 02 Jan")
		} else {
			when = fmt.Sprintf("%s, %s",
				model.RelativeBucket(model.MinutesUntil(ev.Start, now), threshold),
				ev.Start.In(loc).Format("Mon 02 Jan 15:04"),
			)
		}
		fmt.Fprintf(&b, "\n• <b>%s</b> (%s)", html.EscapeString(title), when)
	}
	return b.String()
}
