package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignite/pixel-tracker/internal/domain"
	"github.com/ignite/pixel-tracker/internal/service/activity"
)

// ReportOptions holds flags shared by the read-only report commands.
type ReportOptions struct {
	*RootOptions
	IncludeBots bool
	Limit       int
	Since       string
}

func reportCommand(rootOpts *RootOptions, use, short, long string, args cobra.PositionalArgs,
	run func(cmd *cobra.Command, opts *ReportOptions, args []string) error) (*cobra.Command, *ReportOptions) {
	opts := &ReportOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.IncludeBots, "include-bots", false, "count opens classified as bots")
	return cmd, opts
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, _ := reportCommand(rootOpts, "status <email-id>", "Show per-recipient open status for an email",
		`Show, for every recipient of an email, whether it was opened, how often,
and when it was first and last opened.

Examples:
  pixelctl status launch-2025
  pixelctl status launch-2025 --include-bots --format json`,
		cobra.ExactArgs(1), runStatus)
	return cmd
}

func runStatus(cmd *cobra.Command, opts *ReportOptions, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	st, err := e.reporter.Status(ctx, args[0], opts.IncludeBots)
	if err != nil {
		return serviceError("failed to load status", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, st)
	}
	fmt.Fprintf(out, "Email: %s (%s)\n", st.EmailID, botsLabel(st.IncludeBots))
	if len(st.Recipients) == 0 {
		fmt.Fprintln(out, "No pixels issued for this email.")
		return nil
	}
	return writeRecipients(out, st.Recipients)
}

func writeRecipients(out io.Writer, recipients []domain.RecipientStatus) error {
	tw := newTable(out)
	fmt.Fprintln(tw, "PIXEL\tRECIPIENT\tOPENS\tBOT OPENS\tFIRST OPENED\tLAST OPENED")
	for _, r := range recipients {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.PixelID, r.Recipient, r.OpenCount, r.BotOpenCount, fmtTime(r.FirstOpenedAt), fmtTime(r.LastOpenedAt))
	}
	return tw.Flush()
}

// NewOpensCommand creates the opens command.
func NewOpensCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, _ := reportCommand(rootOpts, "opens <pixel-id>", "List the opens of one pixel",
		`List every recorded open of one pixel, most recent first.

Examples:
  pixelctl opens Zm9vYmFy...
  pixelctl opens Zm9vYmFy... --include-bots`,
		cobra.ExactArgs(1), runOpens)
	return cmd
}

func runOpens(cmd *cobra.Command, opts *ReportOptions, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	hist, err := e.reporter.History(ctx, args[0], opts.IncludeBots)
	if err != nil {
		return serviceError("failed to load opens", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, hist)
	}
	fmt.Fprintf(out, "Pixel: %s (%s), %d opens\n", hist.PixelID, botsLabel(hist.IncludeBots), hist.Count)
	if hist.Count == 0 {
		return nil
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tOPENED AT\tIP\tBOT\tUSER AGENT")
	for _, o := range hist.Opens {
		bot := "no"
		if o.IsBot {
			bot = orDash(o.BotReason)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", o.ID, fmtTime(&o.OpenedAt), orDash(o.IPAddress), bot, orDash(o.UserAgent))
	}
	return tw.Flush()
}

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, opts := reportCommand(rootOpts, "dashboard", "Summarise the most recently sent emails",
		`Summarise opens per email, most recently sent first.

Examples:
  pixelctl dashboard
  pixelctl dashboard --limit 10 --format json`,
		cobra.NoArgs, runDashboard)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "number of emails (default from config)")
	return cmd
}

func runDashboard(cmd *cobra.Command, opts *ReportOptions, _ []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	emails, err := e.reporter.Dashboard(ctx, opts.Limit, opts.IncludeBots)
	if err != nil {
		return serviceError("failed to load dashboard", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, map[string]any{"emails": emails})
	}
	if len(emails) == 0 {
		fmt.Fprintln(out, "No emails tracked yet.")
		return nil
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "EMAIL\tSUBJECT\tSENT\tRECIPIENTS\tOPENED\tOPENS\tBOT OPENS\tLAST OPENED")
	for _, r := range emails {
		sent := r.SentAt
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.EmailID, orDash(r.Subject), fmtTime(&sent), r.TotalRecipients, r.RecipientsOpened,
			r.TotalOpens, r.BotOpens, fmtTime(r.LastOpenedAt))
	}
	return tw.Flush()
}

// NewActivityCommand creates the activity command.
func NewActivityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, opts := reportCommand(rootOpts, "activity", "Show the most recent opens across all emails",
		`Show the most recent opens across all emails. With --since, only opens
strictly after that instant are listed; pass the printed "latest" value
back as --since to poll for new activity.

Examples:
  pixelctl activity --limit 20
  pixelctl activity --since 2025-03-01T12:00:00Z --format json`,
		cobra.NoArgs, runActivity)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default from config)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "RFC 3339 timestamp; only newer opens are listed")
	return cmd
}

func runActivity(cmd *cobra.Command, opts *ReportOptions, _ []string) error {
	var since *time.Time
	if opts.Since != "" {
		t, err := time.Parse(time.RFC3339Nano, opts.Since)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --since", err)
		}
		since = &t
	}

	ctx := cmd.Context()
	e, err := openEnv(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	feed, err := e.reporter.Feed(ctx, activity.FeedQuery{
		Limit:       opts.Limit,
		Since:       since,
		IncludeBots: opts.IncludeBots,
	})
	if err != nil {
		return serviceError("failed to load activity", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, feed)
	}
	fmt.Fprintf(out, "%d new opens, latest %s\n", feed.NewCount, fmtTime(feed.LatestOpenedAt))
	if len(feed.Opens) == 0 {
		return nil
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "OPENED AT\tEMAIL\tRECIPIENT\tBOT\tIP")
	for _, it := range feed.Opens {
		bot := "no"
		if it.IsBot {
			bot = orDash(it.BotReason)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", fmtTime(&it.OpenedAt), it.EmailID, it.Recipient, bot, orDash(it.IPAddress))
	}
	return tw.Flush()
}
