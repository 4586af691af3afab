package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkandawire/docket/internal/audit"
)

// NewAuditCommand creates "docket audit" with history/feed/verify.
func NewAuditCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
	}
	cmd.AddCommand(newAuditHistoryCommand(opts))
	cmd.AddCommand(newAuditFeedCommand(opts))
	cmd.AddCommand(newAuditVerifyCommand(opts))
	return cmd
}

func newAuditHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <case-id>",
		Short: "Show a case's full trail, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.auditr.History(cmd.Context(), "case", args[0])
			if err != nil {
				return err
			}
			return renderEntries(cmd, opts, entries)
		},
	}
}

func newAuditFeedCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show recent activity across all cases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.auditr.Feed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderEntries(cmd, opts, entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries")
	return cmd
}

func newAuditVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <case-id>",
		Short: "Recompute checksums over a case's trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.auditr.History(cmd.Context(), "case", args[0])
			if err != nil {
				return err
			}
			var bad []string
			for _, e := range entries {
				ok, err := audit.Verify(e)
				if err != nil {
					return err
				}
				if !ok {
					bad = append(bad, e.ID)
				}
			}
			if len(bad) > 0 {
				return WrapExitError(ExitFailure, "checksum mismatch",
					fmt.Errorf("entries altered after append: %s", strings.Join(bad, ", ")))
			}
			return formatter(cmd, opts).Successf(
				map[string]any{"entries": len(entries), "intact": true},
				"%d entries, all checksums intact", len(entries))
		},
	}
}

func renderEntries(cmd *cobra.Command, opts *RootOptions, entries []audit.Entry) error {
	out := formatter(cmd, opts)
	if opts.Format == "json" {
		return out.Success(entries)
	}
	for _, e := range entries {
		line := fmt.Sprintf("%5d  %s  %-18s  %s  by %s (%s)",
			e.Seq, e.Timestamp.Format(time.RFC3339), e.Action, e.EntityID, e.ActorID, e.ActorRole)
		if e.PrevStatus != "" || e.NewStatus != "" {
			line += fmt.Sprintf("  %s -> %s", e.PrevStatus, e.NewStatus)
		}
		fmt.Fprintln(out.Writer, line)
	}
	fmt.Fprintf(out.Writer, "%d entries\n", len(entries))
	return nil
}
