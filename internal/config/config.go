// Package config defines daemon configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and REMINDR_* env on top.
// - Validate reports every missing required value wrapped in ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Calendar sources.
const (
	SourceGoogle = "google"
	SourceICS    = "ics"
)

// Dedup backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	// Addr configures the admin HTTP listen address, e.g. ":9090". Empty disables it.
	Addr string `koanf:"addr" yaml:"addr"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled" yaml:"metrics_enabled"`

	// TelegramToken is the bot token used for the messaging gateway.
	TelegramToken string `koanf:"telegram_token" yaml:"telegram_token"`

	// TelegramAPIURL is the Bot API base URL.
	TelegramAPIURL string `koanf:"telegram_api_url" yaml:"telegram_api_url"`

	// ChatID is the single chat that receives reminders and may issue commands.
	ChatID int64 `koanf:"chat_id" yaml:"chat_id"`

	// PollIntervalMS is the reminder tick period.
	PollIntervalMS int `koanf:"poll_interval_ms" yaml:"poll_interval_ms"`

	// NotifyBeforeMinutes is the reminder lead time.
	NotifyBeforeMinutes int `koanf:"notify_before_minutes" yaml:"notify_before_minutes"`

	// CalendarSource selects the gateway: google or ics.
	CalendarSource string `koanf:"calendar_source" yaml:"calendar_source"`

	// CalendarID is the Google calendar identifier.
	CalendarID string `koanf:"calendar_id" yaml:"calendar_id"`

	// CalendarAPIURL is the Google Calendar v3 base URL.
	CalendarAPIURL string `koanf:"calendar_api_url" yaml:"calendar_api_url"`

	// CredentialsPath and TokenPath point at the OAuth2 client and token JSON files.
	CredentialsPath string `koanf:"credentials_path" yaml:"credentials_path"`
	TokenPath       string `koanf:"token_path" yaml:"token_path"`

	// ICSURL is the feed used when CalendarSource is ics.
	ICSURL string `koanf:"ics_url" yaml:"ics_url"`

	// ICSHorizonHours bounds recurrence expansion for the ICS gateway.
	ICSHorizonHours int `koanf:"ics_horizon_hours" yaml:"ics_horizon_hours"`

	// MaxResults caps events per reminder fetch; ListLimit caps the list command.
	MaxResults int `koanf:"max_results" yaml:"max_results"`
	ListLimit  int `koanf:"list_limit" yaml:"list_limit"`

	// Timezone is the IANA zone used when rendering times. "Local" uses the host zone.
	Timezone string `koanf:"timezone" yaml:"timezone"`

	// DedupBackend is file or sqlite; DedupPath is its location.
	DedupBackend string `koanf:"dedup_backend" yaml:"dedup_backend"`
	DedupPath    string `koanf:"dedup_path" yaml:"dedup_path"`

	// LongPollTimeoutSec is the server-side wait for getUpdates.
	LongPollTimeoutSec int `koanf:"long_poll_timeout_sec" yaml:"long_poll_timeout_sec"`

	// RetryDelayMS is the pause after a failed long poll.
	RetryDelayMS int `koanf:"retry_delay_ms" yaml:"retry_delay_ms"`

	// RestartLoops enables supervised restart of a failed loop after RestartDelayMS.
	RestartLoops   bool `koanf:"restart_loops" yaml:"restart_loops"`
	RestartDelayMS int  `koanf:"restart_delay_ms" yaml:"restart_delay_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                "",
		MetricsEnabled:      true,
		TelegramAPIURL:      "https://api.telegram.org",
		PollIntervalMS:      60_000,
		NotifyBeforeMinutes: 15,
		CalendarSource:      SourceGoogle,
		CalendarID:          "primary",
		CalendarAPIURL:      "https://www.googleapis.com/calendar/v3",
		CredentialsPath:     "credentials.json",
		TokenPath:           "token.json",
		ICSHorizonHours:     168,
		MaxResults:          10,
		ListLimit:           10,
		Timezone:            "Local",
		DedupBackend:        BackendFile,
		DedupPath:           "notified.json",
		LongPollTimeoutSec:  30,
		RetryDelayMS:        5_000,
		RestartLoops:        false,
		RestartDelayMS:      5_000,
	}
}

// Validate checks required values and enumerations.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.TelegramToken) == "" {
		problems = append(problems, "telegram_token must not be empty")
	}
	if c.ChatID == 0 {
		problems = append(problems, "chat_id must be set")
	}
	if c.PollIntervalMS <= 0 {
		problems = append(problems, "poll_interval_ms must be positive")
	}
	if c.NotifyBeforeMinutes < 0 {
		problems = append(problems, "notify_before_minutes must not be negative")
	}
	switch c.CalendarSource {
	case SourceGoogle:
		if c.CalendarID == "" {
			problems = append(problems, "calendar_id must not be empty")
		}
	case SourceICS:
		if strings.TrimSpace(c.ICSURL) == "" {
			problems = append(problems, "ics_url must be set when calendar_source is ics")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown calendar_source %q", c.CalendarSource))
	}
	switch c.DedupBackend {
	case BackendFile, BackendSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unknown dedup_backend %q", c.DedupBackend))
	}
	if strings.TrimSpace(c.DedupPath) == "" {
		problems = append(problems, "dedup_path must not be empty")
	}
	if c.LongPollTimeoutSec < 0 {
		problems = append(problems, "long_poll_timeout_sec must not be negative")
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// PollInterval returns the reminder tick period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RetryDelay returns the pause after a failed long poll.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// RestartDelay returns the pause before restarting a failed loop.
func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelayMS) * time.Millisecond
}

// LongPollTimeout returns the getUpdates wait.
func (c *Config) LongPollTimeout() time.Duration {
	return time.Duration(c.LongPollTimeoutSec) * time.Second
}

// ICSHorizon returns the ICS expansion window.
func (c *Config) ICSHorizon() time.Duration {
	return time.Duration(c.ICSHorizonHours) * time.Hour
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.TelegramToken != "" {
		cp.TelegramToken = "***"
	}
	return &cp
}
