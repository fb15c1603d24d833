package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"winkeylock/internal/logging"
)

func newConfigCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration locations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the policy file and log file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := resolveConfigPath(opts.configPath)
			fmt.Fprintf(cmd.OutOrStdout(), "config: %s\nlog:    %s\n", path, logging.PathFor(path))
			return nil
		},
	})
	return cmd
}
