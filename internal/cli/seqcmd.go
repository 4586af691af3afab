package cli

import (
	"github.com/spf13/cobra"
)

// NewSeqCommand creates "docket seq peek": inspect a numbering series
// without consuming a value.
func NewSeqCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seq",
		Short: "Inspect case numbering",
	}

	var court, prefix string
	peek := &cobra.Command{
		Use:   "peek",
		Short: "Show the current counter for a series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if court == "" {
				court = a.cfg.DefaultCourtCode
			}
			if prefix == "" {
				prefix = a.cfg.DefaultTypePrefix
			}

			v, err := a.gen.Peek(cmd.Context(), prefix, court)
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(
				map[string]any{"court": court, "prefix": prefix, "current": v},
				"%s-%s: %d issued this year", court, prefix, v)
		},
	}
	peek.Flags().StringVar(&court, "court", "", "court code (defaults from config)")
	peek.Flags().StringVar(&prefix, "prefix", "", "case type prefix (defaults from config)")

	cmd.AddCommand(peek)
	return cmd
}
