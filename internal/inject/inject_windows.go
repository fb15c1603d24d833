//go:build windows

package inject

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL     = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32DLL.NewProc("SendInput")
)

const (
	inputKeyboard  = 1
	keyEventFKeyUp = 0x0002
	vkControl      = 0x11
)

// keybdInput mirrors the Win32 KEYBDINPUT struct.
type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors the Win32 INPUT struct for the keyboard variant. The union
// is sized by MOUSEINPUT, which is 8 bytes larger than KEYBDINPUT on both
// 32-bit and 64-bit Windows.
type input struct {
	typ     uint32
	ki      keybdInput
	padding [8]byte
}

// SendInputInjector injects through SendInput.
type SendInputInjector struct{}

// New returns the SendInput-backed injector.
func New() Injector { return SendInputInjector{} }

// Tap sends Ctrl down and Ctrl up in one SendInput call.
func (SendInputInjector) Tap() error {
	inputs := ctrlTap()
	sent, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(sent) == len(inputs) {
		return nil
	}
	if err == nil || err == syscall.Errno(0) {
		return fmt.Errorf("SendInput inserted %d of %d events", sent, len(inputs))
	}
	return fmt.Errorf("SendInput inserted %d of %d events: %w", sent, len(inputs), err)
}

func ctrlTap() [2]input {
	down := input{typ: inputKeyboard, ki: keybdInput{wVk: vkControl, dwExtraInfo: ExtraInfoMarker}}
	up := down
	up.ki.dwFlags = keyEventFKeyUp
	return [2]input{down, up}
}
