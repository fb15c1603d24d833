// Package autostart registers winkeylock under the per-user Run key so it
// starts at logon.
package autostart

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ValueName is the Run-key value owned by winkeylock.
const ValueName = "winkeylock"

// RunKeyPath is relative to HKEY_CURRENT_USER.
const RunKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// Test seam.
var executableFn = os.Executable

// Command returns the Run-key command line for the current executable,
// quoted so paths with spaces survive.
func Command(args ...string) (string, error) {
	exe, err := executableFn()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return commandLine(exe, args), nil
}

func commandLine(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(exe))
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// Toggle enables autostart when it is off and disables it when it is on,
// returning the new state.
func Toggle(name string) (bool, error) {
	on, err := Enabled(name)
	if err != nil {
		return false, err
	}
	if on {
		return false, Disable(name)
	}
	command, err := Command()
	if err != nil {
		return false, err
	}
	if err := Enable(name, command); err != nil {
		return false, err
	}
	return true, nil
}

var errEmptyCommand = errors.New("autostart command is empty")
