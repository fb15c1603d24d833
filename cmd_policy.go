package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"winkeylock/internal/config"
)

func newPolicyCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "List or edit the blacklist and whitelist",
		Long: `policy edits the policy file. A running instance picks up the change
through its file watcher.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print both lists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := resolveConfigPath(opts.configPath)
				file, err := config.Load(path)
				if err != nil {
					return err
				}
				writePolicy(cmd.OutOrStdout(), path, file)
				return nil
			},
		},
		newPolicyEditCmd(opts, "add", "Add a combination to a list", (*config.File).Add),
		newPolicyEditCmd(opts, "remove", "Remove a combination from a list", (*config.File).Remove),
	)
	return cmd
}

type policyEdit func(f *config.File, which config.List, spec string) (bool, error)

func newPolicyEditCmd(opts *cliOptions, verb, short string, edit policyEdit) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <blacklist|whitelist> <combo>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			which, err := config.ParseList(args[0])
			if err != nil {
				return err
			}
			path := resolveConfigPath(opts.configPath)
			file, err := config.Load(path)
			if err != nil {
				// Refuse to overwrite a file the user has to fix first.
				return err
			}
			changed, err := edit(&file, which, args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintf(out, "%s: nothing to %s for %q\n", which, verb, args[1])
				return nil
			}
			if _, err := config.Save(path, file); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s %q (%s)\n", which, pastTense(verb), args[1], path)
			return nil
		},
	}
}

func pastTense(verb string) string {
	if verb == "add" {
		return "added"
	}
	return "removed"
}

func writePolicy(w io.Writer, path string, file config.File) {
	fmt.Fprintf(w, "file:          %s\n", path)
	fmt.Fprintf(w, "detect_method: %s\n", file.DetectMethod)
	fmt.Fprintf(w, "blacklist:     %s\n", joinOrNone(file.Blacklist))
	fmt.Fprintf(w, "whitelist:     %s\n", joinOrNone(file.Whitelist))
}

func joinOrNone(entries []string) string {
	if len(entries) == 0 {
		return "(none)"
	}
	return strings.Join(entries, ", ")
}
