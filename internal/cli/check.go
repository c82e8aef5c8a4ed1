package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/okian/remindr/internal/app/reminder"
	"github.com/okian/remindr/pkg/logger"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	DryRun bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single reminder tick and exit",
		Long: `Run one reminder tick against the configured calendar and print its result.

With --dry-run the reminders are printed instead of sent and the notified
set is read but never written.

Example:
  remindr check
  remindr check --dry-run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print reminders instead of sending them")

	return cmd
}

// checkReport is the JSON shape of a check run.
type checkReport struct {
	DryRun    bool                `json:"dry_run"`
	Result    reminder.TickResult `json:"result"`
	Error     string              `json:"error,omitempty"`
	Reminders []string            `json:"reminders,omitempty"`
}

func runCheck(cmd *cobra.Command, opts *CheckOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx, cmd.ErrOrStderr(), opts.RootOptions)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	cal, err := newCalendar(ctx, cfg, loc)
	if err != nil {
		return err
	}
	backend, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend(ctx, backend)

	var (
		sender   reminder.Sender   = newBot(cfg)
		notified reminder.Notified = store
		captured *captureSender
	)
	if opts.DryRun {
		captured = &captureSender{}
		sender = captured
		notified = &dryRunStore{base: store, added: map[string]struct{}{}}
	}

	res := newScheduler(cfg, loc, cal, sender, notified).Tick(ctx)

	report := checkReport{DryRun: opts.DryRun, Result: res}
	if res.Err != nil {
		report.Error = res.Err.Error()
	}
	if captured != nil {
		report.Reminders = captured.texts()
	}

	if err := printCheck(cmd.OutOrStdout(), opts.Format, report); err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("%w: %w", ErrTickFailed, res.Err)
	}
	logger.Get().Debug(ctx, "check finished",
		logger.Bool("dry_run", opts.DryRun),
		logger.Int64("dedup_size", store.Size()),
	)
	return nil
}

func printCheck(w io.Writer, format string, r checkReport) error {
	if format == "json" {
		return writeJSON(w, r)
	}
	for _, text := range r.Reminders {
		if _, err := fmt.Fprintf(w, "%s\n\n", text); err != nil {
			return err
		}
	}
	res := r.Result
	_, err := fmt.Fprintf(w, "fetched=%d eligible=%d sent=%d failed=%d skipped=%d\n",
		res.Fetched, res.Eligible, res.Sent, res.Failed, res.Skipped)
	return err
}

// captureSender records reminders instead of delivering them.
type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) Send(_ context.Context, _ int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *captureSender) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// dryRunStore answers Contains from the persisted set and keeps additions in
// memory only.
type dryRunStore struct {
	base  reminder.Notified
	added map[string]struct{}
}

func (d *dryRunStore) Contains(ctx context.Context, id string) bool {
	if _, ok := d.added[id]; ok {
		return true
	}
	return d.base.Contains(ctx, id)
}

func (d *dryRunStore) Add(_ context.Context, id string) error {
	d.added[id] = struct{}{}
	return nil
}
