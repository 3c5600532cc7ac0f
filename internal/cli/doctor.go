package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDoctorCmd returns a health-check command validating config and environment.
func NewDoctorCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config OK. Server: %s, metrics: %v\n", cfg.Server.Addr, cfg.Server.MetricsEnabled)
			fmt.Fprintf(out, "Client endpoint: %s\n", cfg.Client.ServerURL)
			fmt.Fprintf(out, "Executor workspace: %s (mock: %v)\n", cfg.Executor.Workspace, cfg.Executor.Mock)
			return nil
		},
	}
}
