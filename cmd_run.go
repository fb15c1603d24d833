package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"winkeylock/internal/config"
	"winkeylock/internal/ipc"
	"winkeylock/internal/singleinstance"
)

func newRunCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Install the keyboard hook and show the tray icon (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, opts)
		},
	}
}

func runApp(cmd *cobra.Command, opts *cliOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(*opts, os.Args[1:])
	err := app.Run(ctx)
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		out := cmd.OutOrStdout()
		var reply pingReply
		if resp, pingErr := sendFn("", ipc.NewRequest(ipc.CommandPing)); pingErr == nil && resp.DecodeData(&reply) == nil {
			fmt.Fprintf(out, "winkeylock is already running (pid %d)\n", reply.PID)
			return nil
		}
		fmt.Fprintln(out, "winkeylock is already running")
		return nil
	}
	return err
}

// resolveConfigPath returns the --config value made absolute, or the
// default policy path.
func resolveConfigPath(flag string) string {
	if flag == "" {
		return config.DefaultPath()
	}
	if abs, err := filepath.Abs(flag); err == nil {
		return abs
	}
	return flag
}
