// Package detect answers whether key suppression should apply right now,
// based on the state of the foreground application.
//
// Three strategies exist and the set is closed:
//   - NotificationState asks the shell whether the user is busy or running a
//     Direct3D exclusive full-screen application.
//   - Fullscreen compares the foreground window with its monitor.
//   - WindowStyle looks for a borderless top-level window with no children,
//     which is how most games present themselves.
//
// Every query failure answers "not eligible" so that a broken query can never
// leave suppression stuck on.
package detect

import (
	"errors"
	"fmt"
	"strings"
)

// Method selects the detection strategy.
type Method int

const (
	NotificationState Method = iota
	Fullscreen
	WindowStyle
)

var methodNames = map[Method]string{
	NotificationState: "notification_state",
	Fullscreen:        "fullscreen",
	WindowStyle:       "window_style",
}

// ErrUnknownMethod is returned by ParseMethod for unrecognized names.
var ErrUnknownMethod = errors.New("unknown detect method")

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod resolves a method name. Dashes, spaces and case are ignored,
// and the empty string selects NotificationState.
func ParseMethod(name string) (Method, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "", "notification_state", "notification":
		return NotificationState, nil
	case "fullscreen", "full_screen":
		return Fullscreen, nil
	case "window_style", "windowstyle":
		return WindowStyle, nil
	}
	return NotificationState, fmt.Errorf("%w %q", ErrUnknownMethod, name)
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if _, ok := methodNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Detector reports whether suppression is eligible for the current
// foreground context. Eligible runs on the hook thread and must only make
// short, non-blocking OS queries.
type Detector interface {
	Eligible() bool
	Method() Method
}

// New returns the Detector for method backed by desktop.
func New(method Method, desktop Desktop) Detector {
	switch method {
	case Fullscreen:
		return FullscreenDetector{Desktop: desktop}
	case WindowStyle:
		return WindowStyleDetector{Desktop: desktop}
	default:
		return NotificationDetector{Desktop: desktop}
	}
}
