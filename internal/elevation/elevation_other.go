//go:build !windows

package elevation

import "errors"

// ErrUnsupported is returned by Relaunch off Windows.
var ErrUnsupported = errors.New("elevation is only supported on Windows")

func isElevated() bool { return false }

func Relaunch([]string) error { return ErrUnsupported }
