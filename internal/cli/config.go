package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/remindr/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the REMINDR_CONFIG file and
REMINDR_* environment variables are applied. The bot token is masked.

Validation problems are reported on stderr but do not fail the command.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadUnvalidated(cmd.Context())
			if err != nil {
				return err
			}
			if verr := cfg.Validate(); verr != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", verr)
			}
			return printConfig(cmd.OutOrStdout(), opts.Format, cfg.Redacted())
		},
	}
}

// printConfig writes cfg as YAML, or as JSON keyed by the same names.
func printConfig(w io.Writer, format string, cfg *config.Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if format != "json" {
		_, err = w.Write(out)
		return err
	}

	var fields map[string]any
	if err := yaml.Unmarshal(out, &fields); err != nil {
		return err
	}
	return writeJSON(w, fields)
}
