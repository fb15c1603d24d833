//go:build !windows

package inject

import "errors"

// ErrUnsupported is returned by Tap on non-Windows platforms.
var ErrUnsupported = errors.New("input injection is not supported on this platform")

type unsupportedInjector struct{}

// New returns an injector whose Tap always fails.
func New() Injector { return unsupportedInjector{} }

func (unsupportedInjector) Tap() error { return ErrUnsupported }
