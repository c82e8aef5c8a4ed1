// Package cli builds the remindr command tree.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Without a subcommand it runs the
// daemon.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	runCmd := NewRunCommand(opts)

	cmd := &cobra.Command{
		Use:   "remindr",
		Short: "Calendar reminders delivered to a Telegram chat",
		Long: `remindr polls a calendar and sends a Telegram message shortly before
each event starts. The same chat can ask for the upcoming events with /events.

Configuration is read from the YAML file named by REMINDR_CONFIG and from
REMINDR_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("%w %q: must be one of %v", ErrInvalidFormat, opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: runCmd.RunE,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(runCmd)
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}
