package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/remindr/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func validConfig() *config.Config {
	cfg := config.New()
	cfg.TelegramToken = "123:abc"
	cfg.ChatID = 42
	return cfg
}

func TestConfig_New(t *testing.T) {
	Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		Convey("Then it should have the documented defaults", func() {
			So(cfg.PollIntervalMS, ShouldEqual, 60_000)
			So(cfg.NotifyBeforeMinutes, ShouldEqual, 15)
			So(cfg.CalendarID, ShouldEqual, "primary")
			So(cfg.CalendarSource, ShouldEqual, config.SourceGoogle)
			So(cfg.DedupBackend, ShouldEqual, config.BackendFile)
			So(cfg.LongPollTimeoutSec, ShouldEqual, 30)
			So(cfg.RetryDelayMS, ShouldEqual, 5_000)
			So(cfg.RestartLoops, ShouldBeFalse)
			So(cfg.PollInterval(), ShouldEqual, time.Minute)
			So(cfg.RetryDelay(), ShouldEqual, 5*time.Second)
			So(cfg.LongPollTimeout(), ShouldEqual, 30*time.Second)
			So(cfg.ICSHorizon(), ShouldEqual, 168*time.Hour)
		})

		Convey("Then it should not validate without secrets", func() {
			err := cfg.Validate()
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "telegram_token")
			So(err.Error(), ShouldContainSubstring, "chat_id")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	Convey("Given a config with required values", t, func() {
		cfg := validConfig()

		Convey("Then it validates", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("When the source is ics without a URL", func() {
			cfg.CalendarSource = config.SourceICS

			Convey("Then ics_url is reported", func() {
				err := cfg.Validate()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "ics_url")
			})
		})

		Convey("When enumerations are unknown", func() {
			cfg.CalendarSource = "outlook"
			cfg.DedupBackend = "redis"

			Convey("Then both are reported", func() {
				err := cfg.Validate()
				So(err.Error(), ShouldContainSubstring, "calendar_source")
				So(err.Error(), ShouldContainSubstring, "dedup_backend")
			})
		})

		Convey("When the interval is zero", func() {
			cfg.PollIntervalMS = 0

			Convey("Then it is rejected", func() {
				So(cfg.Validate(), ShouldNotBeNil)
			})
		})

		Convey("When the timezone is unknown", func() {
			cfg.Timezone = "Mars/Olympus"

			Convey("Then it is rejected", func() {
				So(cfg.Validate(), ShouldNotBeNil)
			})
		})

		Convey("When the timezone is UTC", func() {
			cfg.Timezone = "UTC"
			loc, err := cfg.Location()

			Convey("Then it resolves", func() {
				So(err, ShouldBeNil)
				So(loc, ShouldEqual, time.UTC)
			})
		})
	})
}

func TestConfig_Redacted(t *testing.T) {
	Convey("Given a config with a token", t, func() {
		cfg := validConfig()
		red := cfg.Redacted()

		Convey("Then the copy hides it and the original keeps it", func() {
			So(red.TelegramToken, ShouldEqual, "***")
			So(cfg.TelegramToken, ShouldEqual, "123:abc")
		})
	})
}
