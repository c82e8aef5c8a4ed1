package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/okian/remindr/internal/domain/model"
	"github.com/okian/remindr/pkg/logger"
)

const defaultICSHorizon = 7 * 24 * time.Hour

// ICS reads events from an iCalendar feed. The last good body is kept in
// memory and reused on 304 Not Modified.
type ICS struct {
	client   *http.Client
	url      string
	horizon  time.Duration
	location *time.Location
	logger   logger.Logger

	mu           sync.Mutex
	etag         string
	lastModified string
	body         []byte
}

// ICSOption applies a configuration option to ICS.
type ICSOption func(*ICS)

// WithICSClient sets the HTTP client used for fetches.
func WithICSClient(c *http.Client) ICSOption {
	return func(g *ICS) {
		if c != nil {
			g.client = c
		}
	}
}

// WithHorizon bounds how far ahead recurrences are expanded.
func WithHorizon(d time.Duration) ICSOption {
	return func(g *ICS) {
		if d > 0 {
			g.horizon = d
		}
	}
}

// WithICSLocation sets the zone used for floating and all-day times.
func WithICSLocation(loc *time.Location) ICSOption {
	return func(g *ICS) {
		if loc != nil {
			g.location = loc
		}
	}
}

// NewICS creates a gateway over the feed at feedURL.
func NewICS(feedURL string, opts ...ICSOption) *ICS {
	g := &ICS{
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		url:      feedURL,
		horizon:  defaultICSHorizon,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("calendar")
	}
	return g
}

// ListUpcoming fetches and expands the feed, returning at most maxResults
// events that end after since, sorted by start.
func (g *ICS) ListUpcoming(ctx context.Context, since time.Time, maxResults int) ([]model.Event, error) {
	body, err := g.fetch(ctx)
	if err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %w", ErrUpstream, err)
	}

	parsed := make([]vevent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve, g.location)
		if perr != nil {
			g.logger.Debug(ctx, "skipping unparsable VEVENT", logger.Error(perr))
			continue
		}
		parsed = append(parsed, ev)
	}

	events := expand(parsed, since, since.Add(g.horizon))
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	if maxResults > 0 && len(events) > maxResults {
		events = events[:maxResults]
	}
	return events, nil
}

func (g *ICS) fetch(ctx context.Context) ([]byte, error) {
	if g.url == "" {
		return nil, fmt.Errorf("%w: empty feed url", ErrConfig)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	g.mu.Lock()
	if g.etag != "" {
		req.Header.Set("If-None-Match", g.etag)
	}
	if g.lastModified != "" {
		req.Header.Set("If-Modified-Since", g.lastModified)
	}
	g.mu.Unlock()

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrUpstream, redactURL(g.url), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read feed: %w", ErrUpstream, err)
		}
		g.mu.Lock()
		g.etag = resp.Header.Get("ETag")
		g.lastModified = resp.Header.Get("Last-Modified")
		g.body = body
		g.mu.Unlock()
		return body, nil
	case http.StatusNotModified:
		g.mu.Lock()
		defer g.mu.Unlock()
		if len(g.body) == 0 {
			return nil, fmt.Errorf("%w: 304 without a cached feed", ErrUpstream)
		}
		return g.body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrAuth, resp.Status)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUpstream, resp.Status)
	}
}

// redactURL drops query and userinfo, which often carry feed secrets.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
