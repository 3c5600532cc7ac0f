package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmbish04/jbish-kit/internal/protocol"
)

// NewRunCmd dispatches a custom task with free-form arguments. Useful for
// exercising a daemon in mock mode and for executor-side task types the CLI
// has no dedicated command for.
func NewRunCmd(opts *Options) *cobra.Command {
	taskOpts := &taskOptions{}
	var argPairs []string
	var message string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send a custom task to the executor and stream its events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskOpts.Repo == "" {
				return fmt.Errorf("--repo is required")
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			taskArgs, err := parseArgPairs(argPairs)
			if err != nil {
				return err
			}
			if message != "" {
				taskArgs["message"] = message
			}

			return dispatch(cmd, cfg, taskOpts, buildTask(taskOpts, protocol.TaskCustom, taskArgs))
		},
	}

	registerTaskFlags(cmd, taskOpts)
	cmd.Flags().StringSliceVar(&argPairs, "arg", nil, "Task argument as key=value (repeatable)")
	cmd.Flags().StringVar(&message, "message", "", "Message for the executor to echo back")
	return cmd
}
