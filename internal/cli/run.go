package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/remindr/internal/adapters/calendar"
	"github.com/okian/remindr/internal/adapters/http/api"
	service "github.com/okian/remindr/internal/app"
	"github.com/okian/remindr/internal/config"
	"github.com/okian/remindr/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the reminder daemon until SIGINT or SIGTERM",
		Long: `Run the reminder scheduler and the Telegram command loop side by side.

On SIGINT or SIGTERM both loops stop, the notified set is flushed and the
process exits 0. A missing or invalid configuration is logged and also
exits 0. When addr is set an admin HTTP server exposes /healthz, /metrics,
/api/status and /api/notified.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, opts)
		},
	}
}

func runDaemon(cmd *cobra.Command, opts *RootOptions) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, cmd.OutOrStdout(), opts)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		return nil
	}
	log := logger.Get()
	log.Info(ctx, "configuration loaded",
		logger.String("calendar_source", cfg.CalendarSource),
		logger.String("dedup_backend", cfg.DedupBackend),
		logger.Int64("chat_id", cfg.ChatID),
	)

	loc, err := cfg.Location()
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return nil
	}

	cal, err := newCalendar(ctx, cfg, loc)
	if err != nil {
		if errors.Is(err, calendar.ErrConfig) || errors.Is(err, calendar.ErrAuth) {
			log.Error(ctx, "calendar credentials unusable", logger.Error(err))
			return nil
		}
		return err
	}

	backend, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend(ctx, backend)

	bot := newBot(cfg)
	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithScheduler(newScheduler(cfg, loc, cal, bot, store)),
		service.WithCommandLoop(newCommandLoop(cfg, loc, cal, bot)),
		service.WithStore(store),
		service.WithRestart(cfg.RestartLoops),
		service.WithRestartDelay(cfg.RestartDelay()),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	srv := startAdminServer(ctx, cfg, svc)

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "admin server shutdown failed", logger.Error(err))
		}
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "remindr stopped")
	return nil
}

// startAdminServer serves the admin routes when addr is configured.
func startAdminServer(ctx context.Context, cfg *config.Config, svc *service.Service) *http.Server {
	if cfg.Addr == "" {
		return nil
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc).Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log := logger.Get()
		log.Info(ctx, "starting admin HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "admin HTTP server failed", logger.Error(err))
		}
	}()
	return srv
}
