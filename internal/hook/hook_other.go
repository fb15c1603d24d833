//go:build !windows

package hook

import "fmt"

// Install always fails: low-level keyboard hooks exist only on Windows.
func Install(d *Dispatcher) error {
	return fmt.Errorf("%w: low-level keyboard hooks are not supported on this platform", ErrInstall)
}

// Uninstall reports that no hook is installed.
func Uninstall() error { return ErrNotInstalled }

// Installed is always false on this platform.
func Installed() bool { return false }
