package main

import (
	"fmt"
	"log/slog"

	"winkeylock/internal/autostart"
	"winkeylock/internal/tray"
)

var (
	autostartEnabledFn = autostart.Enabled
	autostartToggleFn  = autostart.Toggle
)

func (a *App) trayActions() tray.Actions {
	return tray.Actions{
		Status: a.trayStatus,
		AutostartEnabled: func() bool {
			on, err := autostartEnabledFn(autostart.ValueName)
			if err != nil {
				slog.Debug("[DEBUG-TRAY] autostart state unavailable", "error", err)
			}
			return on
		},
		ToggleAutostart: func() error {
			on, err := autostartToggleFn(autostart.ValueName)
			if err != nil {
				return err
			}
			slog.Info("[DEBUG-TRAY] autostart changed", "enabled", on)
			return nil
		},
		Elevated:   a.elevated,
		RunAsAdmin: a.relaunchElevated,
		OpenConfig: func() error { return openFileFn(a.configPath()) },
		Quit: func() {
			if a.cancel != nil {
				a.cancel()
			}
		},
	}
}

func (a *App) trayStatus() string {
	if a.cfg == nil {
		return "Fallback mode: config unavailable"
	}
	return fmt.Sprintf("Blocking (%s)", a.cfg.DetectMethod())
}

// relaunchElevated starts an elevated copy. The tray then quits, which ends
// Run and releases the instance lock the new copy is waiting for.
func (a *App) relaunchElevated() error {
	if err := relaunchElevateFn(a.args); err != nil {
		return err
	}
	slog.Info("[DEBUG-APP] elevated instance launched, exiting")
	return nil
}
