//go:build windows

package elevation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/windows"
)

const swShowNormal = 1

func isElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// Relaunch starts the current executable elevated with args. The caller
// should exit once it returns nil.
func Relaunch(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	verb, _ := windows.UTF16PtrFromString("runas")
	file, err := windows.UTF16PtrFromString(exe)
	if err != nil {
		return fmt.Errorf("encode executable path: %w", err)
	}
	params, err := windows.UTF16PtrFromString(windows.ComposeCommandLine(relaunchArgs(args)))
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	var dir *uint16
	if cwd != "" {
		dir, _ = windows.UTF16PtrFromString(cwd)
	}

	slog.Info("[DEBUG-ELEVATION] relaunching elevated", "exe", exe)
	if err := windows.ShellExecute(0, verb, file, params, dir, swShowNormal); err != nil {
		if errors.Is(err, windows.ERROR_CANCELLED) {
			return ErrCancelled
		}
		return fmt.Errorf("ShellExecute runas: %w", err)
	}
	return nil
}
