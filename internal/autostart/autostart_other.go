//go:build !windows

package autostart

import "errors"

// ErrUnsupported is returned by every registry operation off Windows.
var ErrUnsupported = errors.New("autostart is only supported on Windows")

func Enabled(string) (bool, error) { return false, ErrUnsupported }

func Enable(_, command string) error {
	if command == "" {
		return errEmptyCommand
	}
	return ErrUnsupported
}

func Disable(string) error { return ErrUnsupported }
