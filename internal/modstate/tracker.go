// Package modstate tracks which modifier keys are currently held, as seen
// by the low-level keyboard hook.
package modstate

import (
	"sync/atomic"

	"winkeylock/internal/keycombo"
)

// Tracker holds the live modifier flags. Observe is called from the hook
// thread only; readers on other goroutines may see flags from different
// events, which is acceptable because every flag is independent.
type Tracker struct {
	shift           atomic.Bool
	ctrl            atomic.Bool
	alt             atomic.Bool
	meta            atomic.Bool
	metaUsedInChord atomic.Bool
}

// State is a point-in-time copy of the tracker.
type State struct {
	keycombo.Modifiers
	MetaUsedInChord bool
}

// Observe updates the flags for one key event.
func (t *Tracker) Observe(code keycombo.Code, down bool) {
	switch {
	case keycombo.IsShift(code):
		t.shift.Store(down)
	case keycombo.IsCtrl(code):
		t.ctrl.Store(down)
	case keycombo.IsAlt(code):
		t.alt.Store(down)
	case keycombo.IsMeta(code):
		t.meta.Store(down)
		if down {
			t.metaUsedInChord.Store(false)
		}
		return
	}

	// Any other key pressed while meta is held turns the meta press into a chord.
	if down && t.meta.Load() {
		t.metaUsedInChord.Store(true)
	}
}

// Modifiers returns the currently held modifiers.
func (t *Tracker) Modifiers() keycombo.Modifiers {
	return keycombo.Modifiers{
		Shift: t.shift.Load(),
		Ctrl:  t.ctrl.Load(),
		Alt:   t.alt.Load(),
		Meta:  t.meta.Load(),
	}
}

// MetaUsedInChord reports whether another key went down during the current
// (or most recent) meta press.
func (t *Tracker) MetaUsedInChord() bool {
	return t.metaUsedInChord.Load()
}

// Snapshot returns all flags.
func (t *Tracker) Snapshot() State {
	return State{Modifiers: t.Modifiers(), MetaUsedInChord: t.MetaUsedInChord()}
}

// Reset clears every flag. Used when the hook is (re)installed, since key
// releases that happened while no hook was active were never observed.
func (t *Tracker) Reset() {
	t.shift.Store(false)
	t.ctrl.Store(false)
	t.alt.Store(false)
	t.meta.Store(false)
	t.metaUsedInChord.Store(false)
}
