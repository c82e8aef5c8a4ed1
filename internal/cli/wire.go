package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/okian/remindr/internal/adapters/calendar"
	"github.com/okian/remindr/internal/adapters/messaging"
	"github.com/okian/remindr/internal/adapters/repository"
	"github.com/okian/remindr/internal/app/commands"
	"github.com/okian/remindr/internal/app/reminder"
	"github.com/okian/remindr/internal/config"
	"github.com/okian/remindr/internal/domain/dedupe"
	"github.com/okian/remindr/pkg/logger"
	"github.com/okian/remindr/pkg/metrics"
)

// initLogging installs the global logger on w with the given format and level.
// Bad values fall back to text and info.
func initLogging(ctx context.Context, w io.Writer, format, level string, verbose bool) {
	if err := logger.InitWithWriter(w, format); err != nil {
		_ = logger.InitWithWriter(w, "text")
		logger.Get().Warn(ctx, "invalid log_format; falling back to text",
			logger.String("log_format", format), logger.Error(err))
	}
	if err := logger.SetLevelString(level); err != nil {
		logger.SetLevel(slog.LevelInfo)
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", level), logger.Error(err))
	}
	if verbose {
		logger.SetLevel(slog.LevelDebug)
	}
}

// loadConfig starts a text logger on w, loads and validates the config, then
// re-initializes logging with the configured format and level and applies
// metrics_enabled.
func loadConfig(ctx context.Context, w io.Writer, opts *RootOptions) (*config.Config, error) {
	initLogging(ctx, w, "text", "info", opts.Verbose)

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	initLogging(ctx, w, cfg.LogFormat, cfg.LogLevel, opts.Verbose)
	metrics.SetEnabled(cfg.MetricsEnabled)
	if !cfg.MetricsEnabled {
		logger.Get().Debug(ctx, "metrics recording disabled")
	}
	return cfg, nil
}

// newCalendar builds the gateway selected by calendar_source.
func newCalendar(ctx context.Context, cfg *config.Config, loc *time.Location) (calendar.Gateway, error) {
	switch cfg.CalendarSource {
	case config.SourceICS:
		return calendar.NewICS(cfg.ICSURL,
			calendar.WithHorizon(cfg.ICSHorizon()),
			calendar.WithICSLocation(loc),
		), nil
	case config.SourceGoogle:
		// Token refreshes outlive the signal context of the command.
		client, err := calendar.NewOAuthClient(context.WithoutCancel(ctx), cfg.CredentialsPath, cfg.TokenPath)
		if err != nil {
			return nil, err
		}
		return calendar.NewGoogle(ctx, client, cfg.CalendarID,
			calendar.WithBaseURL(cfg.CalendarAPIURL),
			calendar.WithLocation(loc),
		)
	default:
		return nil, fmt.Errorf("%w: unknown calendar_source %q", calendar.ErrConfig, cfg.CalendarSource)
	}
}

func newBot(cfg *config.Config) *messaging.Telegram {
	return messaging.New(cfg.TelegramToken,
		messaging.WithAPIURL(cfg.TelegramAPIURL),
		messaging.WithLongPollTimeout(cfg.LongPollTimeout()),
	)
}

// openStore opens the configured backend and loads the dedup store from it.
// The caller owns the returned backend and must Close it.
func openStore(ctx context.Context, cfg *config.Config) (repository.Backend, *dedupe.Store, error) {
	var backend repository.Backend
	switch cfg.DedupBackend {
	case config.BackendSQLite:
		b, err := repository.OpenSQLite(cfg.DedupPath)
		if err != nil {
			return nil, nil, err
		}
		backend = b
	default:
		backend = repository.NewFileBackend(cfg.DedupPath)
	}

	store := dedupe.New(backend)
	store.Load(ctx)
	return backend, store, nil
}

func closeBackend(ctx context.Context, backend repository.Backend) {
	if backend == nil {
		return
	}
	if err := backend.Close(); err != nil {
		logger.Get().Warn(ctx, "failed to close dedup backend", logger.Error(err))
	}
}

func newScheduler(cfg *config.Config, loc *time.Location, cal reminder.Calendar, sender reminder.Sender, store reminder.Notified) *reminder.Scheduler {
	return reminder.New(cal, sender, store, cfg.ChatID,
		reminder.WithInterval(cfg.PollInterval()),
		reminder.WithThreshold(cfg.NotifyBeforeMinutes),
		reminder.WithMaxResults(cfg.MaxResults),
		reminder.WithLocation(loc),
	)
}

func newCommandLoop(cfg *config.Config, loc *time.Location, cal commands.Calendar, bot *messaging.Telegram) *commands.Loop {
	return commands.New(bot, bot, cal, cfg.ChatID,
		commands.WithLongPollTimeout(cfg.LongPollTimeout()),
		commands.WithRetryDelay(cfg.RetryDelay()),
		commands.WithListLimit(cfg.ListLimit),
		commands.WithThreshold(cfg.NotifyBeforeMinutes),
		commands.WithLocation(loc),
	)
}
