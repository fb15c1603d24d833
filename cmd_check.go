package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"winkeylock/internal/config"
	"winkeylock/internal/ipc"
	"winkeylock/internal/keycombo"
)

func newCheckCmd(opts *cliOptions) *cobra.Command {
	var live, jsonOut bool
	cmd := &cobra.Command{
		Use:   "check <combo>",
		Short: "Report whether a key combination is blocked by the policy",
		Long: `check evaluates a combination such as "lwin", "lwin+d" or "shift+lwin+s"
against the policy file. With --live it asks the running instance instead.

A blocked combination is only suppressed while the foreground application is
in a state the context detector accepts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				result checkResult
				err    error
			)
			if live {
				result, err = checkLive(args[0])
			} else {
				result, err = checkFile(resolveConfigPath(opts.configPath), args[0])
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", result.Combo, yesNo(result.Blocked, "blocked", "allowed"), result.Source)
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "ask the running instance")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

// checkFile evaluates spec against the policy file at path without
// touching it. A missing file means the built-in defaults.
func checkFile(path, spec string) (checkResult, error) {
	combo, err := keycombo.Parse(spec)
	if err != nil {
		return checkResult{}, err
	}
	source := path
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		source = "built-in defaults"
	}
	file, err := config.Load(path)
	if err != nil {
		return checkResult{}, err
	}
	set, err := file.Policy()
	if err != nil {
		return checkResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return checkResult{
		Combo:   combo.String(),
		Blocked: set.ShouldBlock(combo.Code(), combo.Modifiers()),
		Source:  source,
	}, nil
}

func checkLive(spec string) (checkResult, error) {
	resp, err := sendControl(ipc.CommandCheck, spec)
	if err != nil {
		return checkResult{}, err
	}
	var result checkResult
	if err := resp.DecodeData(&result); err != nil {
		return checkResult{}, fmt.Errorf("decode check result: %w", err)
	}
	return result, nil
}
