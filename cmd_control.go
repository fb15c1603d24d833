package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"winkeylock/internal/config"
	"winkeylock/internal/ipc"
)

// Test seam.
var sendFn = ipc.Send

var errNotRunning = errors.New("winkeylock is not running")

// sendControl sends one request to the running instance and fails on a
// transport error or an error response.
func sendControl(command string, args ...string) (ipc.Response, error) {
	resp, err := sendFn("", ipc.NewRequest(command, args...))
	if err != nil {
		if ipc.IsConnectionError(err) {
			return resp, errNotRunning
		}
		return resp, fmt.Errorf("%s: %w", command, err)
	}
	if !resp.OK {
		return resp, fmt.Errorf("%s failed: %s", command, resp.Error)
	}
	return resp, nil
}

func newStatusCmd(_ *cliOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := sendControl(ipc.CommandStatus)
			if err != nil {
				return err
			}
			var report statusReport
			if err := resp.DecodeData(&report); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return writeStatus(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newReloadCmd(_ *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Re-read the policy file in the running instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := sendControl(ipc.CommandReload)
			if err != nil {
				return err
			}
			var status config.Status
			if err := resp.DecodeData(&status); err != nil {
				return fmt.Errorf("decode reload result: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reloaded %s (%d blacklist, %d whitelist entries)\n",
				status.Path, len(status.Blacklist), len(status.Whitelist))
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStatus(w io.Writer, r statusReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "winkeylock %s\tpid %d, up %s\n", r.Version, r.PID, r.Uptime)
	fmt.Fprintf(tw, "hook:\t%s\n", yesNo(r.HookInstalled, "installed", "not installed"))
	fmt.Fprintf(tw, "elevated:\t%s\n", yesNo(r.Elevated, "yes", "no"))
	if r.FallbackMode || r.Config == nil {
		fmt.Fprintf(tw, "mode:\tfallback (config unavailable)\n")
	} else {
		c := r.Config
		fmt.Fprintf(tw, "mode:\tpolicy, detect %s\n", c.DetectMethod)
		fmt.Fprintf(tw, "config:\t%s (%s, %d reloads)\n", c.Path, yesNo(c.Watching, "watching", "not watching"), c.Reloads)
		if c.LastError != "" {
			fmt.Fprintf(tw, "last error:\t%s\n", c.LastError)
		}
		fmt.Fprintf(tw, "blacklist:\t%s\n", strings.Join(c.Blacklist, ", "))
		fmt.Fprintf(tw, "whitelist:\t%s\n", strings.Join(c.Whitelist, ", "))
	}
	s := r.Stats
	fmt.Fprintf(tw, "events:\t%d (suppressed %d, injected %d, inject failures %d)\n",
		s.Events, s.Suppressed, s.Injected, s.InjectFailures)
	if p := r.Pipe; p != nil {
		fmt.Fprintf(tw, "control pipe:\t%d requests (%d failed, %d rejected)\n", p.Requests, p.Failed, p.Rejected)
	}
	if r.WorkerRestarts > 0 {
		fmt.Fprintf(tw, "worker restarts:\t%d\n", r.WorkerRestarts)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(r.Recent) > 0 {
		fmt.Fprintln(w, "recent warnings:")
		for _, e := range r.Recent {
			line := e.Message
			if e.Component != "" {
				line = strings.ToLower(e.Component) + ": " + line
			}
			if e.Error != "" {
				line += " (" + e.Error + ")"
			}
			fmt.Fprintf(w, "  %s %-5s %s\n", e.Time.Format("15:04:05"), e.Level, line)
		}
	}
	return nil
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
