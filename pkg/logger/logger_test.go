package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "text"), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info with fields", func() {
			Get().Info(ctx, "reminder sent",
				String("event_id", "evt-1"),
				Int("minutes", 10),
				Int64("cursor", 42),
				Bool("dup", false),
				Duration("took", time.Second),
			)

			Convey("Then the line carries message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "reminder sent")
				So(out, ShouldContainSubstring, "event_id=evt-1")
				So(out, ShouldContainSubstring, "minutes=10")
				So(out, ShouldContainSubstring, "cursor=42")
				So(out, ShouldContainSubstring, "source=")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When debug is below the level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(ctx, "visible")

			Convey("Then debug lines appear", func() {
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})

		Convey("When using a named logger", func() {
			Named("scheduler").Warn(ctx, "tick skipped", Error(errors.New("boom")))

			Convey("Then the component and error are attached", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "component=scheduler")
				So(out, ShouldContainSubstring, "error=boom")
				So(out, ShouldContainSubstring, "level=WARN")
			})
		})
	})
}

func TestLoggerJSONFormat(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "json"), ShouldBeNil)

		Get().Info(context.Background(), "hello", String("k", "v"))

		Convey("Then output is a JSON object", func() {
			line := strings.TrimSpace(buf.String())
			So(line, ShouldStartWith, "{")
			So(line, ShouldContainSubstring, `"k":"v"`)
		})
	})

	Convey("Given an unknown format", t, func() {
		err := InitWithWriter(&bytes.Buffer{}, "xml")

		Convey("Then init fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		So(SetLevelString("debug"), ShouldBeNil)
		So(SetLevelString("INFO"), ShouldBeNil)
		So(SetLevelString("warning"), ShouldBeNil)
		So(SetLevelString("error"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}

func TestBridge(t *testing.T) {
	Convey("Given a cron-style bridge", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "text"), ShouldBeNil)
		b := Bridge(Get())

		Convey("When an error is reported with key/value pairs", func() {
			b.Error(errors.New("job failed"), "panic", "entry", 3, "dangling")

			Convey("Then pairs become fields and the odd tail is dropped", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "entry=3")
				So(out, ShouldContainSubstring, "error=\"job failed\"")
				So(out, ShouldNotContainSubstring, "dangling")
			})
		})
	})
}
