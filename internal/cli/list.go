package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/remindr/internal/domain/model"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Limit int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print upcoming events",
		Long: `Print the upcoming events of the configured calendar with the same
relative buckets the /events command uses.

Example:
  remindr list
  remindr list --limit 25 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum events to print (default list_limit)")

	return cmd
}

// listedEvent is the JSON shape of one listed event.
type listedEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	AllDay   bool      `json:"all_day"`
	Bucket   string    `json:"bucket"`
	Location string    `json:"location,omitempty"`
	Link     string    `json:"link,omitempty"`
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
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

	limit := opts.Limit
	if limit <= 0 {
		limit = cfg.ListLimit
	}
	now := time.Now()
	events, err := cal.ListUpcoming(ctx, now, limit)
	if err != nil {
		return err
	}

	listed := make([]listedEvent, 0, len(events))
	for _, ev := range events {
		bucket := "all day"
		if !ev.AllDay {
			bucket = model.RelativeBucket(model.MinutesUntil(ev.Start, now), cfg.NotifyBeforeMinutes)
		}
		listed = append(listed, listedEvent{
			ID:       ev.ID,
			Title:    ev.Title,
			Start:    ev.Start.In(loc),
			AllDay:   ev.AllDay,
			Bucket:   bucket,
			Location: ev.Location,
			Link:     ev.Link,
		})
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), listed)
	}
	return printList(cmd.OutOrStdout(), listed)
}

func printList(w io.Writer, events []listedEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No upcoming events.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, ev := range events {
		when := ev.Start.Format("Mon 02 Jan 15:04")
		if ev.AllDay {
			when = ev.Start.Format("Mon 02 Jan")
		}
		title := ev.Title
		if title == "" {
			title = "(no title)"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", ev.Bucket, when, title); err != nil {
			return err
		}
	}
	return tw.Flush()
}
