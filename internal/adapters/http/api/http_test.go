package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/remindr/internal/adapters/http/api"
	service "github.com/okian/remindr/internal/app"
	"github.com/okian/remindr/internal/app/reminder"
	"github.com/okian/remindr/pkg/logger"
	"github.com/okian/remindr/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockDeps struct {
	stats service.Stats
	ids   []string
	panic bool
}

func (m *mockDeps) Stats() service.Stats {
	if m.panic {
		panic("stats exploded")
	}
	return m.stats
}

func (m *mockDeps) NotifiedIDs() []string { return m.ids }

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutes(t *testing.T) {
	Convey("Given an admin server over a running service", t, func() {
		deps := &mockDeps{
			stats: service.Stats{
				Started:    true,
				DedupSize:  2,
				Cursor:     10,
				LastTick:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				LastResult: reminder.TickResult{Fetched: 3, Sent: 1, Skipped: 2},
			},
			ids: []string{"a", "b"},
		}
		router := api.NewServer(deps).Router()

		Convey("When /healthz is requested", func() {
			rec := do(router, http.MethodGet, "/healthz")

			Convey("Then it reports ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When the service is not started", func() {
			deps.stats.Started = false
			rec := do(router, http.MethodGet, "/healthz")

			Convey("Then /healthz is unavailable", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(rec.Body.String(), ShouldContainSubstring, "not_ready")
			})
		})

		Convey("When /api/status is requested", func() {
			rec := do(router, http.MethodGet, "/api/status")

			Convey("Then the stats are returned as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["started"], ShouldEqual, true)
				So(body["dedup_size"], ShouldEqual, float64(2))
				So(body["cursor"], ShouldEqual, float64(10))
				So(body["last_tick"], ShouldEqual, "2026-03-01T09:00:00Z")
				last := body["last_tick_result"].(map[string]any)
				So(last["sent"], ShouldEqual, float64(1))
				So(last["skipped"], ShouldEqual, float64(2))
			})
		})

		Convey("When the last tick failed", func() {
			deps.stats.LastResult.Err = errors.New("calendar upstream error: 503")
			rec := do(router, http.MethodGet, "/api/status")

			Convey("Then the error text is included", func() {
				So(rec.Body.String(), ShouldContainSubstring, "calendar upstream error: 503")
			})
		})

		Convey("When /api/notified is requested", func() {
			rec := do(router, http.MethodGet, "/api/notified")

			Convey("Then the ids are listed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(rec.Body.String()), ShouldEqual, `{"count":2,"ids":["a","b"]}`)
			})
		})

		Convey("When nothing was notified yet", func() {
			deps.ids = nil
			rec := do(router, http.MethodGet, "/api/notified")

			Convey("Then an empty array is returned", func() {
				So(strings.TrimSpace(rec.Body.String()), ShouldEqual, `{"count":0,"ids":[]}`)
			})
		})

		Convey("When /metrics is requested after traffic", func() {
			metrics.SetEnabled(true)
			_ = do(router, http.MethodGet, "/api/status")
			rec := do(router, http.MethodGet, "/metrics")

			Convey("Then the custom registry is exposed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "remindr_http_requests_total")
			})
		})

		Convey("When a route is called with the wrong method", func() {
			rec := do(router, http.MethodPost, "/api/status")

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When a handler panics", func() {
			deps.panic = true
			rec := do(router, http.MethodGet, "/api/status")

			Convey("Then a 500 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.Body.String(), ShouldContainSubstring, "internal_error")
			})
		})
	})
}
