//go:build !windows

package tray

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by Run off Windows.
var ErrUnsupported = errors.New("tray icon is only supported on Windows")

// Run returns ErrUnsupported.
func (t *Tray) Run(context.Context) error { return ErrUnsupported }

// Close is a no-op.
func (t *Tray) Close() {}

func showError(string, string) {}
