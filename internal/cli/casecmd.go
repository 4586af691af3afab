package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mkandawire/docket/internal/domain"
	"github.com/mkandawire/docket/internal/lifecycle"
)

// caseFile is the YAML shape of a case submission.
type caseFile struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Type        string   `yaml:"type"`
	Priority    string   `yaml:"priority"`
	CourtCode   string   `yaml:"court_code"`
	TypePrefix  string   `yaml:"type_prefix"`
	Plaintiffs  []party  `yaml:"plaintiffs"`
	Defendants  []party  `yaml:"defendants"`
	Lawyers     []party  `yaml:"lawyers"`
	Tags        []string `yaml:"tags"`
}

type party struct {
	Name    string `yaml:"name"`
	Contact string `yaml:"contact"`
	Counsel string `yaml:"counsel"`
}

func (cf caseFile) toInput(defaultCourt, defaultPrefix string) lifecycle.CreateCaseInput {
	in := lifecycle.CreateCaseInput{
		Title:       cf.Title,
		Description: cf.Description,
		Type:        cf.Type,
		Priority:    domain.Priority(cf.Priority),
		CourtCode:   cf.CourtCode,
		TypePrefix:  cf.TypePrefix,
		Tags:        cf.Tags,
	}
	if in.CourtCode == "" {
		in.CourtCode = defaultCourt
	}
	if in.TypePrefix == "" {
		in.TypePrefix = defaultPrefix
	}
	in.Plaintiffs = toParties(cf.Plaintiffs)
	in.Defendants = toParties(cf.Defendants)
	in.Lawyers = toParties(cf.Lawyers)
	return in
}

func toParties(ps []party) []domain.Party {
	if len(ps) == 0 {
		return nil
	}
	out := make([]domain.Party, len(ps))
	for i, p := range ps {
		out[i] = domain.Party{Name: p.Name, Contact: p.Contact, Counsel: p.Counsel}
	}
	return out
}

// NewCaseCommand creates "docket case" with create/file/show/list.
func NewCaseCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Register and inspect cases",
	}
	cmd.AddCommand(newCaseSubmitCommand(opts, "create", "Register a case at the registry desk"))
	cmd.AddCommand(newCaseSubmitCommand(opts, "file", "File a case electronically"))
	cmd.AddCommand(newCaseShowCommand(opts))
	cmd.AddCommand(newCaseListCommand(opts))
	return cmd
}

func newCaseSubmitCommand(opts *RootOptions, verb, short string) *cobra.Command {
	var (
		filePath string
		actorStr string
	)
	cmd := &cobra.Command{
		Use:   verb + " -f case.yaml",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := parseActor(actorStr)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(filePath)
			if err != nil {
				return WrapExitError(ExitCommandError, "read case file", err)
			}
			var cf caseFile
			if err := yaml.Unmarshal(data, &cf); err != nil {
				return WrapExitError(ExitCommandError, "parse case file", err)
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			in := cf.toInput(a.cfg.DefaultCourtCode, a.cfg.DefaultTypePrefix)
			var c domain.Case
			if verb == "file" {
				c, err = a.svc.FileCase(cmd.Context(), actor, in)
			} else {
				c, err = a.svc.CreateCase(cmd.Context(), actor, in)
			}
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(c,
				"%s  %s  [%s]", c.CaseNumber, c.Title, c.Status)
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "case YAML file (required)")
	cmd.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("actor")
	return cmd
}

func newCaseShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <case-id>",
		Short: "Show one case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.svc.GetCase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(c, "%s", renderCase(c))
		},
	}
}

func newCaseListCommand(opts *RootOptions) *cobra.Command {
	var (
		status   string
		caseType string
		assigned string
		limit    int
		offset   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := lifecycle.Filter{Type: caseType, AssignedTo: assigned, Limit: limit, Offset: offset}
			if status != "" {
				st, err := domain.ParseStatus(status)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --status", err)
				}
				f.Status = st
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			cases, err := a.svc.ListCases(cmd.Context(), f)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return formatter(cmd, opts).Success(cases)
			}
			out := formatter(cmd, opts)
			for _, c := range cases {
				fmt.Fprintf(out.Writer, "%s  %-12s  %s\n", c.CaseNumber, c.Status, c.Title)
			}
			fmt.Fprintf(out.Writer, "%d case(s)\n", len(cases))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&caseType, "type", "", "filter by case type")
	cmd.Flags().StringVar(&assigned, "assigned", "", "filter by assigned judge")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func renderCase(c domain.Case) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", c.CaseNumber, c.Title)
	fmt.Fprintf(&b, "  id:       %s\n", c.ID)
	fmt.Fprintf(&b, "  status:   %s\n", c.Status)
	fmt.Fprintf(&b, "  type:     %s  priority: %s\n", c.Type, c.Priority)
	if c.AssignedTo != "" {
		fmt.Fprintf(&b, "  judge:    %s\n", c.AssignedTo)
	}
	if c.RejectionReason != "" {
		fmt.Fprintf(&b, "  rejected: %s\n", c.RejectionReason)
	}
	fmt.Fprintf(&b, "  hearings: %d  documents: %d  rulings: %d",
		len(c.Hearings), len(c.Documents), len(c.Rulings))
	return b.String()
}
