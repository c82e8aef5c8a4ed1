package calendar_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/remindr/internal/adapters/calendar"
	"github.com/okian/remindr/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const eventsPayload = `{
  "items": [
    {"id": "evt-1", "summary": "Standup", "location": "Room 1", "htmlLink": "https://cal/evt-1",
     "start": {"dateTime": "2026-03-01T10:00:00+01:00"}},
    {"id": "evt-2", "status": "cancelled", "summary": "Dropped",
     "start": {"dateTime": "2026-03-01T11:00:00Z"}},
    {"id": "evt-3", "summary": "Holiday", "start": {"date": "2026-03-02"}},
    {"id": "", "summary": "No id", "start": {"dateTime": "2026-03-01T12:00:00Z"}}
  ]
}`

func TestGoogleListUpcoming(t *testing.T) {
	Convey("Given a fake Google Calendar API", t, func() {
		var gotPath string
		var gotQuery map[string][]string
		status := http.StatusOK
		body := eventsPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.Query()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		defer srv.Close()

		since := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
		g, err := calendar.NewGoogle(context.Background(), srv.Client(), "team@example.com",
			calendar.WithBaseURL(srv.URL+"/"),
			calendar.WithLocation(time.UTC),
		)
		So(err, ShouldBeNil)

		Convey("When events are listed", func() {
			events, err := g.ListUpcoming(context.Background(), since, 10)
			So(err, ShouldBeNil)

			Convey("Then the request carries the expected query", func() {
				So(gotPath, ShouldEqual, "/calendars/team@example.com/events")
				So(gotQuery["timeMin"], ShouldResemble, []string{"2026-03-01T08:00:00Z"})
				So(gotQuery["maxResults"], ShouldResemble, []string{"10"})
				So(gotQuery["singleEvents"], ShouldResemble, []string{"true"})
				So(gotQuery["orderBy"], ShouldResemble, []string{"startTime"})
			})

			Convey("Then cancelled and id-less items are dropped", func() {
				So(len(events), ShouldEqual, 2)
				So(events[0].ID, ShouldEqual, "evt-1")
				So(events[1].ID, ShouldEqual, "evt-3")
			})

			Convey("Then timed and all-day starts are decoded", func() {
				So(events[0].Start.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(events[0].AllDay, ShouldBeFalse)
				So(events[0].Location, ShouldEqual, "Room 1")
				So(events[0].Link, ShouldEqual, "https://cal/evt-1")
				So(events[1].AllDay, ShouldBeTrue)
				So(events[1].Start.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the API rejects the credentials", func() {
			status = http.StatusUnauthorized
			body = `{"error": {"code": 401, "message": "Invalid Credentials"}}`
			_, err := g.ListUpcoming(context.Background(), since, 10)

			Convey("Then ErrAuth is returned with the upstream message", func() {
				So(errors.Is(err, calendar.ErrAuth), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Invalid Credentials")
			})
		})

		Convey("When the calendar is not shared with the account", func() {
			status = http.StatusForbidden
			body = `{"error": {"code": 403, "message": "Forbidden"}}`
			_, err := g.ListUpcoming(context.Background(), since, 10)

			Convey("Then ErrAuth is returned", func() {
				So(errors.Is(err, calendar.ErrAuth), ShouldBeTrue)
			})
		})

		Convey("When the API fails", func() {
			status = http.StatusInternalServerError
			body = `oops`
			_, err := g.ListUpcoming(context.Background(), since, 10)

			Convey("Then ErrUpstream is returned", func() {
				So(errors.Is(err, calendar.ErrUpstream), ShouldBeTrue)
			})
		})

		Convey("When the payload is malformed", func() {
			body = `{"items": [`
			_, err := g.ListUpcoming(context.Background(), since, 10)

			Convey("Then ErrUpstream is returned", func() {
				So(errors.Is(err, calendar.ErrUpstream), ShouldBeTrue)
			})
		})
	})
}
