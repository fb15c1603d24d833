//go:build windows

package detect

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL  = windows.NewLazySystemDLL("user32.dll")
	shell32DLL = windows.NewLazySystemDLL("shell32.dll")

	procSHQueryUserNotificationState = shell32DLL.NewProc("SHQueryUserNotificationState")
	procGetForegroundWindow          = user32DLL.NewProc("GetForegroundWindow")
	procGetWindowRect                = user32DLL.NewProc("GetWindowRect")
	procMonitorFromWindow            = user32DLL.NewProc("MonitorFromWindow")
	procGetMonitorInfoW              = user32DLL.NewProc("GetMonitorInfoW")
	procGetWindowLongPtrW            = user32DLL.NewProc("GetWindowLongPtrW")
	procGetWindowLongW               = user32DLL.NewProc("GetWindowLongW")
	procEnumChildWindows             = user32DLL.NewProc("EnumChildWindows")
)

const (
	monitorDefaultToNearest = 0x00000002
	gwlStyle                = -16
)

// monitorInfo mirrors the Win32 MONITORINFO struct.
type monitorInfo struct {
	cbSize    uint32
	rcMonitor Rect
	rcWork    Rect
	dwFlags   uint32
}

var (
	childCallbackOnce sync.Once
	childCallback     uintptr
)

// stopAtFirstChild is the EnumChildWindows callback. lParam points at an
// int32 counter owned by the caller; returning 0 stops the enumeration.
func stopAtFirstChild(_ uintptr, lParam uintptr) uintptr {
	*(*int32)(unsafe.Pointer(lParam)) = 1
	return 0
}

// Win32Desktop answers Desktop queries through user32 and shell32.
type Win32Desktop struct{}

// NewDesktop returns the Win32 desktop query backend.
func NewDesktop() Desktop { return Win32Desktop{} }

func (Win32Desktop) NotificationState() (NotificationStatus, error) {
	if err := procSHQueryUserNotificationState.Find(); err != nil {
		return 0, fmt.Errorf("SHQueryUserNotificationState unavailable: %w", err)
	}
	var state int32
	hr, _, _ := procSHQueryUserNotificationState.Call(uintptr(unsafe.Pointer(&state)))
	if int32(hr) < 0 {
		return 0, fmt.Errorf("SHQueryUserNotificationState failed: HRESULT 0x%08x", uint32(hr))
	}
	return NotificationStatus(state), nil
}

func (Win32Desktop) ForegroundWindow() (uintptr, error) {
	if err := procGetForegroundWindow.Find(); err != nil {
		return 0, err
	}
	hwnd, _, _ := procGetForegroundWindow.Call()
	return hwnd, nil
}

func (Win32Desktop) WindowRect(hwnd uintptr) (Rect, error) {
	var r Rect
	ret, _, err := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return Rect{}, callError("GetWindowRect", err)
	}
	return r, nil
}

func (Win32Desktop) MonitorRect(hwnd uintptr) (Rect, error) {
	monitor, _, err := procMonitorFromWindow.Call(hwnd, monitorDefaultToNearest)
	if monitor == 0 {
		return Rect{}, callError("MonitorFromWindow", err)
	}
	info := monitorInfo{cbSize: uint32(unsafe.Sizeof(monitorInfo{}))}
	ret, _, err := procGetMonitorInfoW.Call(monitor, uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return Rect{}, callError("GetMonitorInfoW", err)
	}
	return info.rcMonitor, nil
}

func (Win32Desktop) WindowStyle(hwnd uintptr) (uint32, error) {
	// GetWindowLongPtrW is a macro on 32-bit Windows and has no export there.
	proc := procGetWindowLongPtrW
	if proc.Find() != nil {
		proc = procGetWindowLongW
	}
	style, _, err := proc.Call(hwnd, signExtend(gwlStyle))
	if style == 0 && err != syscall.Errno(0) {
		return 0, callError("GetWindowLong", err)
	}
	return uint32(style), nil
}

func (Win32Desktop) HasChildWindows(hwnd uintptr) (bool, error) {
	if err := procEnumChildWindows.Find(); err != nil {
		return false, err
	}
	childCallbackOnce.Do(func() {
		childCallback = windows.NewCallback(stopAtFirstChild)
	})
	var found int32
	// The return value of EnumChildWindows carries no meaning.
	procEnumChildWindows.Call(hwnd, childCallback, uintptr(unsafe.Pointer(&found)))
	return found != 0, nil
}

func signExtend(v int32) uintptr {
	return uintptr(v)
}

func callError(name string, err error) error {
	if err == nil || err == syscall.Errno(0) {
		return errors.New(name + " failed")
	}
	return fmt.Errorf("%s: %w", name, err)
}
