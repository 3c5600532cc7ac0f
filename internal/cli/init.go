package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmbish04/jbish-kit/internal/scaffold"
)

// NewInitCmd scaffolds project configuration in a local directory. Init is
// the one generator that runs locally; everything else goes through the
// executor.
func NewInitCmd(opts *Options) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init <project-name>",
		Short: "Create jbish project configuration in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := scaffold.ValidateName(name); err != nil {
				return err
			}

			written, err := scaffold.NewGenerator(dir).InitProject(name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(written) == 0 {
				fmt.Fprintln(out, "Project already initialized, nothing to do")
				return nil
			}
			for _, path := range written {
				fmt.Fprintf(out, "created %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to initialize")
	return cmd
}
