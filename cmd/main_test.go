package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExecute(t *testing.T) {
	Convey("Given the remindr binary entry point", t, func() {
		ctx := context.Background()
		var stdout, stderr bytes.Buffer

		Convey("When printing the configuration", func() {
			t.Setenv("REMINDR_CONFIG", "")
			t.Setenv("REMINDR_TELEGRAM_TOKEN", "123:secret")
			t.Setenv("REMINDR_CHAT_ID", "42")

			code := execute(ctx, []string{"config"}, &stdout, &stderr)

			Convey("Then it exits 0 with the token masked", func() {
				So(code, ShouldEqual, 0)
				So(stdout.String(), ShouldContainSubstring, "chat_id: 42")
				So(stdout.String(), ShouldNotContainSubstring, "secret")
			})
		})

		Convey("When an unknown format is requested", func() {
			code := execute(ctx, []string{"config", "--format", "xml"}, &stdout, &stderr)

			Convey("Then it exits 1 and reports the error", func() {
				So(code, ShouldEqual, 1)
				So(stderr.String(), ShouldContainSubstring, "invalid format")
			})
		})

		Convey("When the daemon starts without a bot token", func() {
			t.Setenv("REMINDR_CONFIG", "")
			_ = os.Unsetenv("REMINDR_TELEGRAM_TOKEN")
			_ = os.Unsetenv("REMINDR_CHAT_ID")

			code := execute(ctx, []string{"run"}, &stdout, &stderr)

			Convey("Then the config error is logged and it exits 0", func() {
				So(code, ShouldEqual, 0)
				So(stdout.String(), ShouldContainSubstring, "failed to load config")
				So(stdout.String(), ShouldContainSubstring, "telegram_token must not be empty")
			})
		})
	})
}
