package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmbish04/jbish-kit/internal/protocol"
	"github.com/jmbish04/jbish-kit/internal/scaffold"
)

// NewGenerateCmd groups the remote generators.
func NewGenerateCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate pages and agents through the executor",
	}
	cmd.AddCommand(newGeneratePageCmd(opts))
	cmd.AddCommand(newGenerateAgentCmd(opts))
	return cmd
}

func newGeneratePageCmd(opts *Options) *cobra.Command {
	taskOpts := &taskOptions{}
	var title string

	cmd := &cobra.Command{
		Use:   "page <name>",
		Short: "Generate a page and open a pull request for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := scaffold.ValidateName(name); err != nil {
				return err
			}
			if taskOpts.Repo == "" {
				return fmt.Errorf("--repo is required")
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			task := buildTask(taskOpts, protocol.TaskGeneratePage, map[string]any{
				"pageName": name,
				"title":    title,
			})
			return dispatch(cmd, cfg, taskOpts, task)
		},
	}

	registerTaskFlags(cmd, taskOpts)
	cmd.Flags().StringVar(&title, "title", "", "Page title (default: derived from the name)")
	return cmd
}

func newGenerateAgentCmd(opts *Options) *cobra.Command {
	taskOpts := &taskOptions{}
	var description string

	cmd := &cobra.Command{
		Use:   "agent <name>",
		Short: "Generate an agent definition and open a pull request for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := scaffold.ValidateName(name); err != nil {
				return err
			}
			if taskOpts.Repo == "" {
				return fmt.Errorf("--repo is required")
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			task := buildTask(taskOpts, protocol.TaskGenerateAgent, map[string]any{
				"agentName":   name,
				"description": description,
			})
			return dispatch(cmd, cfg, taskOpts, task)
		},
	}

	registerTaskFlags(cmd, taskOpts)
	cmd.Flags().StringVar(&description, "description", "", "What the agent does")
	return cmd
}
