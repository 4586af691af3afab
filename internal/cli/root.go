// Package cli implements the docket command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds the global flags shared by every command.
type RootOptions struct {
	DBPath     string
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats lists the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root of the docket CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "docket",
		Short:         "docket - court case management core",
		Long:          "Case registration, lifecycle transitions, hearings, and the audit trail\nover a single embedded database file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database file (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewCaseCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewHearingCommand(opts))
	cmd.AddCommand(NewDocCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewSeqCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
