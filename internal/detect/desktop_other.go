//go:build !windows

package detect

import "errors"

// ErrUnsupported is returned by every query on non-Windows platforms, which
// makes every detector report "not eligible".
var ErrUnsupported = errors.New("desktop queries are not supported on this platform")

type unsupportedDesktop struct{}

// NewDesktop returns a backend whose queries all fail.
func NewDesktop() Desktop { return unsupportedDesktop{} }

func (unsupportedDesktop) NotificationState() (NotificationStatus, error) {
	return 0, ErrUnsupported
}

func (unsupportedDesktop) ForegroundWindow() (uintptr, error) { return 0, ErrUnsupported }

func (unsupportedDesktop) WindowRect(uintptr) (Rect, error) { return Rect{}, ErrUnsupported }

func (unsupportedDesktop) MonitorRect(uintptr) (Rect, error) { return Rect{}, ErrUnsupported }

func (unsupportedDesktop) WindowStyle(uintptr) (uint32, error) { return 0, ErrUnsupported }

func (unsupportedDesktop) HasChildWindows(uintptr) (bool, error) { return false, ErrUnsupported }
