package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ClassifyOptions holds flags for the classify command.
type ClassifyOptions struct {
	*RootOptions
	UserAgent string
	IP        string
	RulesPath string
}

// NewClassifyCommand creates the classify command. It does not touch the
// store, which makes it handy for trying out a rules file.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Run the bot heuristic on a user agent and IP",
		Long: `Run the bot heuristic on a user agent and source IP and print the verdict.

Examples:
  pixelctl classify --user-agent "Googlebot/2.1"
  pixelctl classify --ip 66.249.64.1 --rules ./bots.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.UserAgent, "user-agent", "", "User-Agent header value")
	cmd.Flags().StringVar(&opts.IP, "ip", "", "source IP address")
	cmd.Flags().StringVar(&opts.RulesPath, "rules", "", "bot rules YAML file (default from config, else built-in)")

	return cmd
}

func runClassify(cmd *cobra.Command, opts *ClassifyOptions) error {
	c, err := loadClassifier(opts.RootOptions, opts.RulesPath)
	if err != nil {
		return err
	}
	verdict := c.Classify(opts.UserAgent, opts.IP)

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, verdict)
	}
	if verdict.IsBot {
		fmt.Fprintf(out, "bot (%s)\n", verdict.Reason)
		return nil
	}
	fmt.Fprintln(out, "human")
	return nil
}
