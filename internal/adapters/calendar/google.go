package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/okian/remindr/internal/domain/model"
)

const defaultHTTPTimeout = 15 * time.Second

// Google reads events through the Google Calendar v3 API. The HTTP client
// is expected to carry OAuth2 credentials (see NewOAuthClient).
type Google struct {
	events     *gcal.EventsService
	baseURL    string
	calendarID string
	location   *time.Location
}

// GoogleOption applies a configuration option to Google.
type GoogleOption func(*Google)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(base string) GoogleOption {
	return func(g *Google) {
		if base != "" {
			g.baseURL = strings.TrimRight(base, "/") + "/"
		}
	}
}

// WithLocation sets the zone used for all-day dates.
func WithLocation(loc *time.Location) GoogleOption {
	return func(g *Google) {
		if loc != nil {
			g.location = loc
		}
	}
}

// NewGoogle creates a gateway for calendarID using client.
func NewGoogle(ctx context.Context, client *http.Client, calendarID string, opts ...GoogleOption) (*Google, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	g := &Google{
		calendarID: calendarID,
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(g)
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(g.baseURL))
	}
	svc, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: calendar service: %w", ErrConfig, err)
	}
	g.events = svc.Events
	return g, nil
}

// ListUpcoming calls events.list with singleEvents expansion ordered by start.
func (g *Google) ListUpcoming(ctx context.Context, since time.Time, maxResults int) ([]model.Event, error) {
	call := g.events.List(g.calendarID).
		TimeMin(since.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(int64(maxResults))
	}

	list, err := call.Do()
	if err != nil {
		return nil, classify(err)
	}

	events := make([]model.Event, 0, len(list.Items))
	for _, item := range list.Items {
		if item == nil || item.Status == "cancelled" {
			continue
		}
		ev, ok := g.toEvent(item)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (g *Google) toEvent(item *gcal.Event) (model.Event, bool) {
	ev := model.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Location:    item.Location,
		Description: item.Description,
		Link:        item.HtmlLink,
	}
	if ev.ID == "" || item.Start == nil {
		return ev, false
	}
	switch {
	case item.Start.DateTime != "":
		t, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return ev, false
		}
		ev.Start = t
	case item.Start.Date != "":
		t, err := time.ParseInLocation("2006-01-02", item.Start.Date, g.location)
		if err != nil {
			return ev, false
		}
		ev.Start = t
		ev.AllDay = true
	default:
		return ev, false
	}
	return ev, true
}

// classify maps API and token failures onto ErrAuth and ErrUpstream.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: %w", ErrAuth, err)
		}
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if isAuthError(err) {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
