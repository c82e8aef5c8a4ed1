package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/remindr/internal/cli"
	"github.com/okian/remindr/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeBot accepts sendMessage and answers getUpdates with an empty batch.
type fakeBot struct {
	mu   sync.Mutex
	sent []string
}

func (b *fakeBot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		b.mu.Lock()
		b.sent = append(b.sent, body["text"].(string))
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 1}}`))
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		select {
		case <-r.Context().Done():
			return
		case <-time.After(20 * time.Millisecond):
		}
		_, _ = w.Write([]byte(`{"ok": true, "result": []}`))
	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBot) messages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sent...)
}

// feed returns an ICS body with one event 5 minutes out and one 3 hours out.
func feed(now time.Time) string {
	stamp := func(t time.Time) string { return t.UTC().Format("20060102T150405Z") }
	soon := now.Add(5 * time.Minute)
	later := now.Add(3 * time.Hour)
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//remindr//test//EN",
		"BEGIN:VEVENT",
		"UID:soon-1",
		"DTSTAMP:" + stamp(now),
		"DTSTART:" + stamp(soon),
		"DTEND:" + stamp(soon.Add(15*time.Minute)),
		"SUMMARY:Standup",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:later-1",
		"DTSTAMP:" + stamp(now),
		"DTSTART:" + stamp(later),
		"DTEND:" + stamp(later.Add(time.Hour)),
		"SUMMARY:Review",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

type harness struct {
	bot       *fakeBot
	statePath string
}

// setup starts the fake services and points the REMINDR_* environment at them.
func setup(t *testing.T) *harness {
	body := feed(time.Now())
	ics := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ics.Close)

	bot := &fakeBot{}
	tg := httptest.NewServer(bot)
	t.Cleanup(tg.Close)

	h := &harness{bot: bot, statePath: filepath.Join(t.TempDir(), "notified.json")}
	for k, v := range map[string]string{
		"REMINDR_CONFIG":                "",
		"REMINDR_TELEGRAM_TOKEN":        "123:secret",
		"REMINDR_TELEGRAM_API_URL":      tg.URL,
		"REMINDR_CHAT_ID":               "42",
		"REMINDR_CALENDAR_SOURCE":       "ics",
		"REMINDR_ICS_URL":               ics.URL,
		"REMINDR_DEDUP_PATH":            h.statePath,
		"REMINDR_TIMEZONE":              "UTC",
		"REMINDR_LONG_POLL_TIMEOUT_SEC": "1",
		"REMINDR_RETRY_DELAY_MS":        "10",
	} {
		t.Setenv(k, v)
	}
	return h
}

func execute(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// sentTotal reads remindr_reminders_sent_total from the metrics registry.
func sentTotal() float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() != "remindr_reminders_sent_total" {
			continue
		}
		var sum float64
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	return 0
}

func TestRootCommand(t *testing.T) {
	Convey("Given the root command", t, func() {
		cmd := cli.NewRootCommand()

		Convey("Then every subcommand is registered", func() {
			for _, name := range []string{"run", "check", "list", "config"} {
				sub, _, err := cmd.Find([]string{name})
				So(err, ShouldBeNil)
				So(sub.Name(), ShouldEqual, name)
			}
		})

		Convey("Then the global flags have their defaults", func() {
			format := cmd.PersistentFlags().Lookup("format")
			So(format, ShouldNotBeNil)
			So(format.DefValue, ShouldEqual, "text")
			verbose := cmd.PersistentFlags().Lookup("verbose")
			So(verbose.Shorthand, ShouldEqual, "v")
		})

		Convey("Then check has a dry-run flag", func() {
			check, _, _ := cmd.Find([]string{"check"})
			So(check.Flags().Lookup("dry-run"), ShouldNotBeNil)
		})
	})
}

func TestListCommand(t *testing.T) {
	Convey("Given an ICS calendar", t, func() {
		setup(t)
		ctx := context.Background()

		Convey("When listing as text", func() {
			out, _, err := execute(ctx, "list")

			Convey("Then each event is shown with its bucket", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				So(lines, ShouldHaveLength, 2)
				So(lines[0], ShouldStartWith, "soon")
				So(lines[0], ShouldEndWith, "Standup")
				So(lines[1], ShouldStartWith, "in 3 h")
				So(lines[1], ShouldEndWith, "Review")
			})
		})

		Convey("When listing as JSON with a limit", func() {
			out, _, err := execute(ctx, "list", "--format", "json", "--limit", "1")

			Convey("Then one event is returned", func() {
				So(err, ShouldBeNil)
				var events []map[string]any
				So(json.Unmarshal([]byte(out), &events), ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0]["id"], ShouldEqual, "soon-1")
				So(events[0]["bucket"], ShouldEqual, "soon")
				So(events[0]["all_day"], ShouldEqual, false)
			})
		})
	})
}

func TestCheckCommand(t *testing.T) {
	Convey("Given an event five minutes out", t, func() {
		h := setup(t)
		ctx := context.Background()

		Convey("When checking with --dry-run", func() {
			out, _, err := execute(ctx, "check", "--dry-run")

			Convey("Then the reminder is printed but not sent or stored", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "<b>Standup</b> starts in 5 min")
				So(out, ShouldContainSubstring, "fetched=2 eligible=1 sent=1 failed=0 skipped=1")
				So(h.bot.messages(), ShouldBeEmpty)
				_, statErr := os.Stat(h.statePath)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When checking for real twice", func() {
			first, _, err := execute(ctx, "check", "--format", "json")
			So(err, ShouldBeNil)
			second, _, err := execute(ctx, "check")
			So(err, ShouldBeNil)

			Convey("Then the reminder is sent once and persisted", func() {
				var report map[string]any
				So(json.Unmarshal([]byte(first), &report), ShouldBeNil)
				So(report["result"].(map[string]any)["sent"], ShouldEqual, float64(1))
				So(second, ShouldContainSubstring, "sent=0")
				So(h.bot.messages(), ShouldHaveLength, 1)

				data, err := os.ReadFile(h.statePath)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, `["soon-1"]`)
			})
		})

		Convey("When checking verbosely with metrics disabled", func() {
			t.Setenv("REMINDR_METRICS_ENABLED", "false")
			before := sentTotal()
			_, errOut, err := execute(ctx, "check", "--verbose")

			Convey("Then the reminder goes out without being counted", func() {
				So(err, ShouldBeNil)
				So(h.bot.messages(), ShouldHaveLength, 1)
				So(sentTotal(), ShouldEqual, before)
			})

			Convey("Then debug output is logged", func() {
				So(errOut, ShouldContainSubstring, "check finished")
				So(errOut, ShouldContainSubstring, "metrics recording disabled")
				So(errOut, ShouldContainSubstring, "starts_at=")
			})

			Convey("And the next check with metrics enabled counts again", func() {
				t.Setenv("REMINDR_METRICS_ENABLED", "true")
				t.Setenv("REMINDR_DEDUP_PATH", filepath.Join(t.TempDir(), "fresh.json"))
				_, _, err := execute(ctx, "check")
				So(err, ShouldBeNil)
				So(sentTotal(), ShouldEqual, before+1)
			})
		})

		Convey("When the calendar is unreachable", func() {
			t.Setenv("REMINDR_ICS_URL", "http://127.0.0.1:1/cal.ics")
			_, _, err := execute(ctx, "check")

			Convey("Then the command fails", func() {
				So(errors.Is(err, cli.ErrTickFailed), ShouldBeTrue)
			})
		})
	})
}

func TestRunCommand(t *testing.T) {
	Convey("Given a fully configured daemon", t, func() {
		h := setup(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			_, _, err := execute(ctx, "run")
			done <- err
		}()

		Convey("When it runs until the reminder goes out and is then cancelled", func() {
			deadline := time.Now().Add(5 * time.Second)
			for len(h.bot.messages()) == 0 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			cancel()

			var err error
			select {
			case err = <-done:
			case <-time.After(10 * time.Second):
				err = errors.New("run did not stop")
			}

			Convey("Then it exits cleanly with the reminder persisted", func() {
				So(err, ShouldBeNil)
				So(h.bot.messages(), ShouldHaveLength, 1)
				So(h.bot.messages()[0], ShouldContainSubstring, "Standup")

				data, err := os.ReadFile(h.statePath)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, `["soon-1"]`)
			})
		})
	})
}

func TestConfigCommand(t *testing.T) {
	Convey("Given an incomplete configuration", t, func() {
		t.Setenv("REMINDR_CONFIG", "")
		t.Setenv("REMINDR_TELEGRAM_TOKEN", "")
		t.Setenv("REMINDR_CHAT_ID", "7")
		ctx := context.Background()

		Convey("When printing it as JSON", func() {
			out, errOut, err := execute(ctx, "config", "--format", "json")

			Convey("Then the settings are printed and the problem is reported", func() {
				So(err, ShouldBeNil)
				var fields map[string]any
				So(json.Unmarshal([]byte(out), &fields), ShouldBeNil)
				So(fields["chat_id"], ShouldEqual, float64(7))
				So(fields["calendar_source"], ShouldEqual, "google")
				So(errOut, ShouldContainSubstring, "telegram_token must not be empty")
			})
		})
	})
}
