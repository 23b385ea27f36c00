package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/pixel-tracker/internal/service/pixel"
)

// IssueOptions holds flags for the issue command.
type IssueOptions struct {
	*RootOptions
	EmailID   string
	Recipient string
	Subject   string
}

// NewIssueCommand creates the issue command.
func NewIssueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IssueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Create a tracking pixel for one recipient",
		Long: `Create a tracking pixel for one recipient of an email and print the
URL and the <img> tag to embed.

Examples:
  pixelctl issue --email-id launch-2025 --recipient ana@example.com
  pixelctl issue --email-id launch-2025 --recipient ana@example.com --subject "Launch day" --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssue(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.EmailID, "email-id", "", "email (campaign) identifier (required)")
	_ = cmd.MarkFlagRequired("email-id")
	cmd.Flags().StringVar(&opts.Recipient, "recipient", "", "recipient address (required)")
	_ = cmd.MarkFlagRequired("recipient")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "email subject")

	return cmd
}

func runIssue(cmd *cobra.Command, opts *IssueOptions) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	issued, err := e.pixels.Create(ctx, pixel.CreateRequest{
		EmailID:   opts.EmailID,
		Recipient: opts.Recipient,
		Subject:   opts.Subject,
	})
	if err != nil {
		return serviceError("failed to issue pixel", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, issued)
	}
	fmt.Fprintf(out, "Pixel ID: %s\n", issued.PixelID)
	fmt.Fprintf(out, "URL:      %s\n", issued.PixelURL)
	fmt.Fprintf(out, "HTML:     %s\n", issued.PixelHTML)
	return nil
}
