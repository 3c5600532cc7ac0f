package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jmbish04/jbish-kit/internal/client"
	"github.com/jmbish04/jbish-kit/internal/config"
	"github.com/jmbish04/jbish-kit/internal/display"
	"github.com/jmbish04/jbish-kit/internal/logging"
	"github.com/jmbish04/jbish-kit/internal/protocol"
)

// taskOptions are the flags shared by every command that dispatches a task
// to the daemon.
type taskOptions struct {
	Server      string
	Repo        string
	Branch      string
	GitHubToken string
	WorkerToken string
	Verbose     bool
	Debug       bool
	Validate    bool
	AutoMerge   bool
}

// registerTaskFlags attaches the shared dispatch flags to a command.
func registerTaskFlags(cmd *cobra.Command, o *taskOptions) {
	cmd.Flags().StringVar(&o.Server, "server", "", "Executor WebSocket endpoint (overrides config)")
	cmd.Flags().StringVar(&o.Repo, "repo", "", "Target repository as owner/name (required)")
	cmd.Flags().StringVar(&o.Branch, "branch", "", "Working branch (default: jbish/<task-id>)")
	cmd.Flags().StringVar(&o.GitHubToken, "github-token", "", "GitHub token (default: $GITHUB_TOKEN)")
	cmd.Flags().StringVar(&o.WorkerToken, "worker-token", "", "Executor auth token (default: $JBISH_WORKER_TOKEN)")
	cmd.Flags().BoolVar(&o.Verbose, "verbose", false, "Ask the executor for verbose output")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Render debug-level events locally")
	cmd.Flags().BoolVar(&o.Validate, "validate", false, "Run frontend validation before the pull request")
	cmd.Flags().BoolVar(&o.AutoMerge, "auto-merge", false, "Merge the pull request when validation passes")
}

// buildTask assembles a TaskMessage from flags and environment fallbacks.
func buildTask(o *taskOptions, typ protocol.TaskType, args map[string]any) *protocol.TaskMessage {
	taskID := "task-" + uuid.NewString()
	branch := o.Branch
	if branch == "" {
		branch = "jbish/" + taskID
	}

	github := o.GitHubToken
	if github == "" {
		github = os.Getenv("GITHUB_TOKEN")
	}
	worker := o.WorkerToken
	if worker == "" {
		worker = os.Getenv("JBISH_WORKER_TOKEN")
	}

	if args == nil {
		args = map[string]any{}
	}

	return &protocol.TaskMessage{
		Type:   typ,
		TaskID: taskID,
		Repo:   o.Repo,
		Branch: branch,
		Auth:   protocol.Auth{GitHub: github, Worker: worker},
		Settings: protocol.Settings{
			Verbose:          o.Verbose,
			Debug:            o.Debug,
			ValidateFrontend: o.Validate,
			AutoMerge:        o.AutoMerge,
		},
		Args: args,
	}
}

// dispatch connects to the daemon, sends one task and renders its event
// stream until the terminal event. A task that ends in an error event is a
// command failure.
func dispatch(cmd *cobra.Command, cfg *config.Config, o *taskOptions, task *protocol.TaskMessage) error {
	server := o.Server
	if server == "" {
		server = cfg.Client.ServerURL
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort

	renderer := display.New(cmd.OutOrStdout(), o.Debug)
	c := client.New(server, renderer.Handle, logger)

	if err := c.Connect(cmd.Context()); err != nil {
		return err
	}
	defer c.Close()

	id, err := c.SendTask(task)
	if err != nil {
		return err
	}

	if err := c.WaitForCompletion(cmd.Context(), id); err != nil {
		return fmt.Errorf("task %s: %w", id, err)
	}
	return nil
}

// parseArgPairs turns repeated key=value flags into a task args map.
func parseArgPairs(pairs []string) (map[string]any, error) {
	args := map[string]any{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid arg %q, expected key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}
