package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"winkeylock/internal/autostart"
)

var (
	autostartEnableFn  = autostart.Enable
	autostartDisableFn = autostart.Disable
	autostartCommandFn = autostart.Command
)

func newAutostartCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Start winkeylock at logon",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Report whether autostart is enabled",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				on, err := autostartEnabledFn(autostart.ValueName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "autostart: %s\n", yesNo(on, "enabled", "disabled"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "enable",
			Short: "Register winkeylock under the Run key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var args []string
				if opts.configPath != "" {
					args = append(args, "--config", resolveConfigPath(opts.configPath))
				}
				command, err := autostartCommandFn(args...)
				if err != nil {
					return err
				}
				if err := autostartEnableFn(autostart.ValueName, command); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "autostart: enabled (%s)\n", command)
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Remove the Run key entry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := autostartDisableFn(autostart.ValueName); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "autostart: disabled")
				return nil
			},
		},
	)
	return cmd
}
