package cli

import (
	"github.com/spf13/cobra"
)

// NewInitCommand creates "docket init": create the database file and its
// collections.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatter(cmd, opts).Successf(
				map[string]string{"db": a.cfg.DBPath},
				"initialized %s", a.cfg.DBPath)
		},
	}
}
