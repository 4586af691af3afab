package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mkandawire/docket/internal/domain"
)

// NewHearingCommand creates "docket hearing schedule".
func NewHearingCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hearing",
		Short: "Manage hearings",
	}

	var actorStr, dateStr, venue, judgeID string
	schedule := &cobra.Command{
		Use:   "schedule <case-id>",
		Short: "Schedule a hearing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := parseActor(actorStr)
			if err != nil {
				return err
			}
			date, err := time.Parse(time.RFC3339, dateStr)
			if err != nil {
				// Accept a bare date for paper-diary workflows.
				date, err = time.Parse("2006-01-02", dateStr)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --date", err)
				}
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.svc.ScheduleHearing(cmd.Context(), args[0], actor, domain.HearingRef{
				Date:    date,
				Venue:   venue,
				JudgeID: judgeID,
			})
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(h,
				"hearing %s on %s", h.ID, h.Date.Format("2006-01-02 15:04"))
		},
	}
	schedule.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
	schedule.Flags().StringVar(&dateStr, "date", "", "date, YYYY-MM-DD or RFC 3339 (required)")
	schedule.Flags().StringVar(&venue, "venue", "", "hearing venue")
	schedule.Flags().StringVar(&judgeID, "judge", "", "presiding judge (defaults to the assigned judge)")
	schedule.MarkFlagRequired("actor")
	schedule.MarkFlagRequired("date")

	cmd.AddCommand(schedule)
	return cmd
}
