//go:build windows

package autostart

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows/registry"
)

// Test seam.
var runKeyPath = RunKeyPath

// Enabled reports whether the Run key carries a value named name.
func Enabled(name string) (bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open run key: %w", err)
	}
	defer key.Close()

	if _, _, err := key.GetStringValue(name); err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read run value %q: %w", name, err)
	}
	return true, nil
}

// Enable writes command under name, creating the Run key if needed.
func Enable(name, command string) error {
	if command == "" {
		return errEmptyCommand
	}
	key, _, err := registry.CreateKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open run key for write: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue(name, command); err != nil {
		return fmt.Errorf("write run value %q: %w", name, err)
	}
	slog.Debug("[DEBUG-AUTOSTART] enabled", "name", name, "command", command)
	return nil
}

// Disable removes the value. A missing value is not an error.
func Disable(name string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open run key for write: %w", err)
	}
	defer key.Close()

	if err := key.DeleteValue(name); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("delete run value %q: %w", name, err)
	}
	slog.Debug("[DEBUG-AUTOSTART] disabled", "name", name)
	return nil
}
