package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkandawire/docket/internal/domain"
)

// NewStatusCommand creates "docket status" with one subcommand per
// lifecycle verb.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Move a case through its lifecycle",
	}

	simple := func(verb, short string, fn func(a *app, ctx context.Context, caseID string, actor domain.Actor) (domain.Case, error)) *cobra.Command {
		var actorStr string
		c := &cobra.Command{
			Use:   verb + " <case-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				actor, err := parseActor(actorStr)
				if err != nil {
					return err
				}
				a, err := openApp(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer a.Close()

				updated, err := fn(a, cmd.Context(), args[0], actor)
				if err != nil {
					return err
				}
				return formatter(cmd, opts).Successf(updated,
					"%s is now %s", updated.CaseNumber, updated.Status)
			},
		}
		c.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
		c.MarkFlagRequired("actor")
		return c
	}

	cmd.AddCommand(simple("verify", "Verify a filed case",
		func(a *app, ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
			return a.svc.Verify(ctx, id, actor)
		}))
	cmd.AddCommand(simple("takeoff", "Mark the session as started",
		func(a *app, ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
			return a.svc.MarkTakesOff(ctx, id, actor)
		}))
	cmd.AddCommand(simple("record", "Start evidence recording",
		func(a *app, ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
			return a.svc.StartRecording(ctx, id, actor)
		}))
	cmd.AddCommand(simple("adjourn", "Adjourn proceedings",
		func(a *app, ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
			return a.svc.Adjourn(ctx, id, actor)
		}))
	cmd.AddCommand(simple("resume", "Resume an adjourned or appealed case",
		func(a *app, ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
			return a.svc.Resume(ctx, id, actor)
		}))
	cmd.AddCommand(simple("appeal", "Lodge an appeal against a ruling",
		func(a *app, ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
			return a.svc.Appeal(ctx, id, actor)
		}))
	cmd.AddCommand(simple("close", "Close the case",
		func(a *app, ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
			return a.svc.Close(ctx, id, actor)
		}))
	cmd.AddCommand(simple("dismiss", "Dismiss the case",
		func(a *app, ctx context.Context, id string, actor domain.Actor) (domain.Case, error) {
			return a.svc.Dismiss(ctx, id, actor)
		}))

	cmd.AddCommand(newRejectCommand(opts))
	cmd.AddCommand(newSummonsCommand(opts))
	cmd.AddCommand(newAllocateCommand(opts))
	cmd.AddCommand(newRulingCommand(opts))
	return cmd
}

func newRejectCommand(opts *RootOptions) *cobra.Command {
	var actorStr, reason string
	cmd := &cobra.Command{
		Use:   "reject <case-id>",
		Short: "Reject a filed case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := parseActor(actorStr)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.svc.Reject(cmd.Context(), args[0], actor, reason)
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(c, "%s rejected: %s", c.CaseNumber, reason)
		},
	}
	cmd.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("reason")
	return cmd
}

func newSummonsCommand(opts *RootOptions) *cobra.Command {
	var actorStr, dateStr string
	cmd := &cobra.Command{
		Use:   "summons <case-id>",
		Short: "Issue summons on a verified case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := parseActor(actorStr)
			if err != nil {
				return err
			}
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --date", err)
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.svc.IssueSummons(cmd.Context(), args[0], actor, date)
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(c, "%s summons issued for %s", c.CaseNumber, dateStr)
		},
	}
	cmd.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
	cmd.Flags().StringVar(&dateStr, "date", "", "summons date YYYY-MM-DD (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("date")
	return cmd
}

func newAllocateCommand(opts *RootOptions) *cobra.Command {
	var actorStr, judgeID string
	cmd := &cobra.Command{
		Use:   "allocate <case-id>",
		Short: "Allocate a judge and activate the case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := parseActor(actorStr)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.svc.AllocateJudge(cmd.Context(), args[0], actor, judgeID)
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(c, "%s allocated to %s", c.CaseNumber, judgeID)
		},
	}
	cmd.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
	cmd.Flags().StringVar(&judgeID, "judge", "", "judge user id (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("judge")
	return cmd
}

func newRulingCommand(opts *RootOptions) *cobra.Command {
	var actorStr, text string
	cmd := &cobra.Command{
		Use:   "ruling <case-id>",
		Short: "Record a ruling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := parseActor(actorStr)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.svc.RecordRuling(cmd.Context(), args[0], actor, text)
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(c, "%s ruling recorded", c.CaseNumber)
		},
	}
	cmd.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
	cmd.Flags().StringVar(&text, "text", "", "ruling text (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("text")
	return cmd
}
