// Package tray shows the notification-area icon and its context menu.
package tray

import (
	"errors"
	"log/slog"
	"sync"
)

// Menu command identifiers.
const (
	cmdStatus uint16 = 1000 + iota
	cmdAutostart
	cmdElevate
	cmdOpenConfig
	cmdQuit
)

// Actions are the callbacks behind the menu entries. Nil entries are hidden.
type Actions struct {
	// Status returns the disabled first line of the menu.
	Status func() string
	// AutostartEnabled drives the check mark of the autostart entry.
	AutostartEnabled func() bool
	// ToggleAutostart flips the Run-key registration.
	ToggleAutostart func() error
	// Elevated hides the "Run as administrator" entry when true.
	Elevated bool
	// RunAsAdmin relaunches elevated. On success the tray quits.
	RunAsAdmin func() error
	// OpenConfig opens the policy file in the default editor.
	OpenConfig func() error
	// Quit is called once when a shown icon goes away, whether through the
	// Quit entry, a successful relaunch or Close.
	Quit func()
}

// Item is one context-menu entry.
type Item struct {
	ID        uint16
	Label     string
	Checked   bool
	Disabled  bool
	Separator bool
}

// Tray owns one notification icon.
type Tray struct {
	tooltip string
	actions Actions

	quitOnce sync.Once
	// Test seam.
	errorDialog func(title, text string)
}

// New returns a Tray; call Run to show it.
func New(tooltip string, actions Actions) *Tray {
	return &Tray{tooltip: tooltip, actions: actions, errorDialog: showError}
}

// Items builds the menu for the current state.
func (t *Tray) Items() []Item {
	var items []Item
	if t.actions.Status != nil {
		items = append(items, Item{ID: cmdStatus, Label: t.actions.Status(), Disabled: true}, Item{Separator: true})
	}
	if t.actions.ToggleAutostart != nil {
		checked := t.actions.AutostartEnabled != nil && t.actions.AutostartEnabled()
		items = append(items, Item{ID: cmdAutostart, Label: "Run when Windows starts", Checked: checked})
	}
	if t.actions.RunAsAdmin != nil && !t.actions.Elevated {
		items = append(items, Item{ID: cmdElevate, Label: "Run as administrator"})
	}
	if t.actions.OpenConfig != nil {
		items = append(items, Item{ID: cmdOpenConfig, Label: "Open config file"})
	}
	return append(items, Item{Separator: true}, Item{ID: cmdQuit, Label: "Quit"})
}

// dispatch runs the command and reports whether the tray should close.
func (t *Tray) dispatch(id uint16) bool {
	switch id {
	case cmdAutostart:
		if err := t.actions.ToggleAutostart(); err != nil {
			slog.Warn("[WARN-TRAY] autostart toggle failed", "error", err)
			t.errorDialog("Error changing autostart", err.Error())
		}
	case cmdElevate:
		if err := t.actions.RunAsAdmin(); err != nil {
			slog.Warn("[WARN-TRAY] elevation failed", "error", err)
			t.errorDialog("Error elevating permissions", err.Error())
			return false
		}
		return true
	case cmdOpenConfig:
		if err := t.actions.OpenConfig(); err != nil {
			slog.Warn("[WARN-TRAY] open config failed", "error", err)
			t.errorDialog("Error opening config", err.Error())
		}
	case cmdQuit:
		return true
	case 0, cmdStatus:
	default:
		slog.Debug("[DEBUG-TRAY] unknown menu command", "id", id)
	}
	return false
}

func (t *Tray) quit() {
	t.quitOnce.Do(func() {
		if t.actions.Quit != nil {
			t.actions.Quit()
		}
	})
}

var errAlreadyRunning = errors.New("tray is already running")
