// Package elevation reports whether the process runs with an elevated token
// and relaunches it through the UAC "runas" verb. An unelevated hook cannot
// see keys typed into elevated windows.
package elevation

import "errors"

// RestartFlag is appended to the relaunched command line so the new process
// waits for the old one to release the instance lock.
const RestartFlag = "--elevated-restart"

// ErrCancelled is returned when the user declines the UAC prompt.
var ErrCancelled = errors.New("elevation was cancelled")

// Test seam.
var isElevatedFn = isElevated

// IsElevated reports whether the current process token is elevated. Errors
// read as not elevated.
func IsElevated() bool {
	return isElevatedFn()
}

// relaunchArgs drops any earlier RestartFlag and appends a fresh one.
func relaunchArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a != RestartFlag {
			out = append(out, a)
		}
	}
	return append(out, RestartFlag)
}
