package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"winkeylock/internal/elevation"
)

const version = "0.1.0"

func main() {
	setConsoleUTF8()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cliOptions holds the persistent flags shared by every subcommand.
type cliOptions struct {
	configPath      string
	logLevel        string
	logFormat       string
	logStderr       bool
	elevatedRestart bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "winkeylock",
		Short: "Block the Windows key while games and presentations have focus",
		Long: `winkeylock installs a low-level keyboard hook and suppresses Windows-key
combinations listed in its blacklist, unless they are whitelisted, while the
foreground application is busy, full screen or a borderless game window.

Running winkeylock without a subcommand is the same as "winkeylock run".`,
		Example: `  winkeylock
  winkeylock status
  winkeylock check lwin+d
  winkeylock policy add whitelist lwin+v
  winkeylock autostart enable`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd, opts)
		},
	}
	root.Version = version
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "policy file (default <user config dir>/winkeylock/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.BoolVar(&opts.logStderr, "log-stderr", false, "also write logs to stderr")
	flags.BoolVar(&opts.elevatedRestart, elevation.RestartFlag[2:], false, "wait for the previous instance to exit")
	_ = flags.MarkHidden(elevation.RestartFlag[2:])

	root.AddCommand(
		newRunCmd(opts),
		newStatusCmd(opts),
		newReloadCmd(opts),
		newCheckCmd(opts),
		newPolicyCmd(opts),
		newConfigCmd(opts),
		newAutostartCmd(opts),
	)
	return root
}
