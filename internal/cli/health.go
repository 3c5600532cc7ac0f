package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmbish04/jbish-kit/internal/protocol"
)

// NewHealthCmd dispatches a health_audit task for a repository.
func NewHealthCmd(opts *Options) *cobra.Command {
	taskOpts := &taskOptions{}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Audit a repository's configuration through the executor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskOpts.Repo == "" {
				return fmt.Errorf("--repo is required")
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return dispatch(cmd, cfg, taskOpts, buildTask(taskOpts, protocol.TaskHealthAudit, nil))
		},
	}

	registerTaskFlags(cmd, taskOpts)
	return cmd
}
