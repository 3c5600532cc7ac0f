package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmbish04/jbish-kit/internal/lint"
	"github.com/jmbish04/jbish-kit/internal/protocol"
)

// NewLintCmd checks project configuration. Without flags it lints the local
// directory; with --remote it dispatches a lint_fix task to the executor.
func NewLintCmd(opts *Options) *cobra.Command {
	taskOpts := &taskOptions{}
	var dir string
	var fix bool
	var remote bool

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check (and optionally fix) jbish project configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			if remote {
				if taskOpts.Repo == "" {
					return fmt.Errorf("--repo is required with --remote")
				}
				return dispatch(cmd, cfg, taskOpts, buildTask(taskOpts, protocol.TaskLintFix, nil))
			}

			linter := lint.New(dir, cfg.Lint.RequiredFiles)
			var rep *lint.Report
			if fix {
				rep, err = linter.Fix()
			} else {
				rep, err = linter.Check()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, fixed := range rep.Fixed {
				fmt.Fprintf(out, "fixed: %s\n", fixed)
			}
			for _, msg := range rep.Messages() {
				fmt.Fprintf(out, "issue: %s\n", msg)
			}
			if !rep.Passed() {
				return fmt.Errorf("lint found %d issue(s)", len(rep.Issues))
			}
			fmt.Fprintln(out, "Configuration OK")
			return nil
		},
	}

	registerTaskFlags(cmd, taskOpts)
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to lint")
	cmd.Flags().BoolVar(&fix, "fix", false, "Rewrite fixable issues in place")
	cmd.Flags().BoolVar(&remote, "remote", false, "Run lint_fix through the executor and open a pull request")
	return cmd
}
