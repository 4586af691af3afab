package cli

import (
	"github.com/spf13/cobra"

	"github.com/mkandawire/docket/internal/domain"
)

// NewDocCommand creates "docket doc" with attach/seal/sign.
func NewDocCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage case documents",
	}
	cmd.AddCommand(newDocAttachCommand(opts))
	cmd.AddCommand(newDocStampCommand(opts, "seal", "Seal a document"))
	cmd.AddCommand(newDocStampCommand(opts, "sign", "Sign a document"))
	return cmd
}

func newDocAttachCommand(opts *RootOptions) *cobra.Command {
	var actorStr, title string
	cmd := &cobra.Command{
		Use:   "attach <case-id>",
		Short: "Attach a document reference",
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

			doc, err := a.svc.AttachDocument(cmd.Context(), args[0], actor, domain.DocumentRef{Title: title})
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(doc, "document %s attached", doc.ID)
		},
	}
	cmd.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
	cmd.Flags().StringVar(&title, "title", "", "document title (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newDocStampCommand(opts *RootOptions, verb, short string) *cobra.Command {
	var actorStr, docID string
	cmd := &cobra.Command{
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

			if verb == "seal" {
				err = a.svc.SealDocument(cmd.Context(), args[0], actor, docID)
			} else {
				err = a.svc.SignDocument(cmd.Context(), args[0], actor, docID)
			}
			if err != nil {
				return err
			}
			return formatter(cmd, opts).Successf(
				map[string]string{"documentId": docID, "action": verb},
				"document %s %sed", docID, verb)
		},
	}
	cmd.Flags().StringVar(&actorStr, "actor", "", "acting user as <user-id>:<role> (required)")
	cmd.Flags().StringVar(&docID, "doc", "", "document id (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("doc")
	return cmd
}
