// Package inject sends the synthetic Ctrl tap that cancels a pending
// Start-menu trigger after a suppressed meta press.
package inject

// ExtraInfoMarker is stored in the dwExtraInfo field of every event this
// package injects, so the hook can recognise and ignore its own input.
const ExtraInfoMarker uintptr = 0x574B4C4B // "WKLK"

// Injector emits a Ctrl press+release pair into the system input stream.
// Tap runs on the hook thread and must return promptly.
type Injector interface {
	Tap() error
}

// InjectorFunc adapts a function to Injector.
type InjectorFunc func() error

func (f InjectorFunc) Tap() error { return f() }
