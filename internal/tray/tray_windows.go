//go:build windows

package tray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL  = windows.NewLazySystemDLL("user32.dll")
	shell32DLL = windows.NewLazySystemDLL("shell32.dll")

	procRegisterClassExW       = user32DLL.NewProc("RegisterClassExW")
	procCreateWindowExW        = user32DLL.NewProc("CreateWindowExW")
	procDefWindowProcW         = user32DLL.NewProc("DefWindowProcW")
	procDestroyWindow          = user32DLL.NewProc("DestroyWindow")
	procGetMessageW            = user32DLL.NewProc("GetMessageW")
	procTranslateMessage       = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW       = user32DLL.NewProc("DispatchMessageW")
	procPostMessageW           = user32DLL.NewProc("PostMessageW")
	procPostQuitMessage        = user32DLL.NewProc("PostQuitMessage")
	procRegisterWindowMessageW = user32DLL.NewProc("RegisterWindowMessageW")
	procLoadIconW              = user32DLL.NewProc("LoadIconW")
	procCreatePopupMenu        = user32DLL.NewProc("CreatePopupMenu")
	procAppendMenuW            = user32DLL.NewProc("AppendMenuW")
	procTrackPopupMenu         = user32DLL.NewProc("TrackPopupMenu")
	procDestroyMenu            = user32DLL.NewProc("DestroyMenu")
	procGetCursorPos           = user32DLL.NewProc("GetCursorPos")
	procSetForegroundWindow    = user32DLL.NewProc("SetForegroundWindow")
	procShellNotifyIconW       = shell32DLL.NewProc("Shell_NotifyIconW")
)

const (
	wmNull        = 0x0000
	wmDestroy     = 0x0002
	wmClose       = 0x0010
	wmContextMenu = 0x007B
	wmLButtonDbl  = 0x0203
	wmRButtonUp   = 0x0205
	wmApp         = 0x8000
	wmTrayIcon    = wmApp + 1

	nimAdd    = 0x0
	nimDelete = 0x2

	nifMessage = 0x1
	nifIcon    = 0x2
	nifTip     = 0x4

	mfString    = 0x0000
	mfGrayed    = 0x0001
	mfChecked   = 0x0008
	mfSeparator = 0x0800

	tpmRightAlign  = 0x0008
	tpmBottomAlign = 0x0020
	tpmNoNotify    = 0x0080
	tpmReturnCmd   = 0x0100

	idiApplication = 32512
	iconID         = 1
)

var className = windows.StringToUTF16Ptr("winkeylockTrayWindow")

type wndClassEx struct {
	size       uint32
	style      uint32
	wndProc    uintptr
	clsExtra   int32
	wndExtra   int32
	instance   windows.Handle
	icon       windows.Handle
	cursor     windows.Handle
	background windows.Handle
	menuName   *uint16
	className  *uint16
	iconSm     windows.Handle
}

// notifyIconData mirrors NOTIFYICONDATAW.
type notifyIconData struct {
	size            uint32
	wnd             windows.HWND
	id              uint32
	flags           uint32
	callbackMessage uint32
	icon            windows.Handle
	tip             [128]uint16
	state           uint32
	stateMask       uint32
	info            [256]uint16
	timeoutVersion  uint32
	infoTitle       [64]uint16
	infoFlags       uint32
	guidItem        windows.GUID
	balloonIcon     windows.Handle
}

type point struct {
	x int32
	y int32
}

type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

var (
	// current is the tray whose window procedure is live.
	current atomic.Pointer[Tray]

	registerOnce sync.Once
	registerErr  error

	taskbarCreated uint32
)

// windowState is owned by the tray's message-loop thread, except hwnd which
// Close reads to post WM_CLOSE.
type windowState struct {
	hwnd atomic.Uintptr
	nid  notifyIconData
}

var state windowState

// Run shows the icon and pumps its window messages until Quit is chosen,
// Close is called, or ctx is cancelled. It locks the calling goroutine to
// its OS thread.
func (t *Tray) Run(ctx context.Context) error {
	if !current.CompareAndSwap(nil, t) {
		return errAlreadyRunning
	}
	defer current.Store(nil)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := registerClass(); err != nil {
		return err
	}

	hwnd, _, err := procCreateWindowExW.Call(0,
		uintptr(unsafe.Pointer(className)), uintptr(unsafe.Pointer(className)),
		0, 0, 0, 0, 0, 0, 0, 0, 0)
	if hwnd == 0 {
		return callError("CreateWindowExW", err)
	}
	state.hwnd.Store(hwnd)
	defer state.hwnd.Store(0)

	if err := t.addIcon(windows.HWND(hwnd)); err != nil {
		procDestroyWindow.Call(hwnd)
		return err
	}

	// From here on the tray's end is the app's end.
	defer t.quit()
	stop := context.AfterFunc(ctx, t.Close)
	defer stop()

	slog.Debug("[DEBUG-TRAY] tray icon shown")
	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			return callError("GetMessageW", lastErr)
		case 0:
			slog.Debug("[DEBUG-TRAY] message loop received WM_QUIT")
			return nil
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

// Close removes the icon and ends Run. Safe to call from any goroutine.
func (t *Tray) Close() {
	if hwnd := state.hwnd.Load(); hwnd != 0 {
		procPostMessageW.Call(hwnd, wmClose, 0, 0)
	}
}

func registerClass() error {
	registerOnce.Do(func() {
		if err := user32DLL.Load(); err != nil {
			registerErr = fmt.Errorf("user32.dll is unavailable: %w", err)
			return
		}
		msgName := windows.StringToUTF16Ptr("TaskbarCreated")
		r, _, _ := procRegisterWindowMessageW.Call(uintptr(unsafe.Pointer(msgName)))
		taskbarCreated = uint32(r)

		var module windows.Handle
		_ = windows.GetModuleHandleEx(0, nil, &module)
		wc := wndClassEx{
			wndProc:   windows.NewCallback(wndProc),
			instance:  module,
			className: className,
		}
		wc.size = uint32(unsafe.Sizeof(wc))
		if ret, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); ret == 0 {
			registerErr = callError("RegisterClassExW", err)
		}
	})
	return registerErr
}

func (t *Tray) addIcon(hwnd windows.HWND) error {
	icon, _, _ := procLoadIconW.Call(0, idiApplication)

	state.nid = notifyIconData{
		wnd:             hwnd,
		id:              iconID,
		flags:           nifMessage | nifIcon | nifTip,
		callbackMessage: wmTrayIcon,
		icon:            windows.Handle(icon),
	}
	state.nid.size = uint32(unsafe.Sizeof(state.nid))
	tip, _ := windows.UTF16FromString(t.tooltip)
	copy(state.nid.tip[:len(state.nid.tip)-1], tip)

	if ret, _, err := procShellNotifyIconW.Call(nimAdd, uintptr(unsafe.Pointer(&state.nid))); ret == 0 {
		return callError("Shell_NotifyIconW(NIM_ADD)", err)
	}
	return nil
}

func wndProc(hwnd, msg, wParam, lParam uintptr) uintptr {
	t := current.Load()
	switch uint32(msg) {
	case wmTrayIcon:
		if t == nil {
			return 0
		}
		switch uint32(lParam) & 0xFFFF {
		case wmRButtonUp, wmContextMenu:
			if t.showMenu(hwnd) {
				procPostMessageW.Call(hwnd, wmClose, 0, 0)
			}
		case wmLButtonDbl:
			if t.actions.OpenConfig != nil && t.dispatch(cmdOpenConfig) {
				procPostMessageW.Call(hwnd, wmClose, 0, 0)
			}
		}
		return 0
	case wmClose:
		procShellNotifyIconW.Call(nimDelete, uintptr(unsafe.Pointer(&state.nid)))
		procDestroyWindow.Call(hwnd)
		return 0
	case wmDestroy:
		procPostQuitMessage.Call(0)
		return 0
	}
	if taskbarCreated != 0 && uint32(msg) == taskbarCreated {
		// Explorer restarted; the icon has to be added again.
		procShellNotifyIconW.Call(nimAdd, uintptr(unsafe.Pointer(&state.nid)))
		return 0
	}
	ret, _, _ := procDefWindowProcW.Call(hwnd, msg, wParam, lParam)
	return ret
}

// showMenu pops the context menu at the cursor and runs the chosen command.
// It reports whether the tray should close.
func (t *Tray) showMenu(hwnd uintptr) bool {
	menu, _, err := procCreatePopupMenu.Call()
	if menu == 0 {
		slog.Warn("[WARN-TRAY] CreatePopupMenu failed", "error", err)
		return false
	}
	defer procDestroyMenu.Call(menu)

	for _, item := range t.Items() {
		if item.Separator {
			procAppendMenuW.Call(menu, mfSeparator, 0, 0)
			continue
		}
		flags := uintptr(mfString)
		if item.Checked {
			flags |= mfChecked
		}
		if item.Disabled {
			flags |= mfGrayed
		}
		label, _ := windows.UTF16PtrFromString(item.Label)
		procAppendMenuW.Call(menu, flags, uintptr(item.ID), uintptr(unsafe.Pointer(label)))
	}

	var pt point
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	// The menu only closes on an outside click when our window is foreground.
	procSetForegroundWindow.Call(hwnd)
	id, _, _ := procTrackPopupMenu.Call(menu,
		tpmRightAlign|tpmBottomAlign|tpmNoNotify|tpmReturnCmd,
		uintptr(pt.x), uintptr(pt.y), 0, hwnd, 0)
	procPostMessageW.Call(hwnd, wmNull, 0, 0)

	return t.dispatch(uint16(id))
}

func showError(title, text string) {
	titlePtr, _ := windows.UTF16PtrFromString(title)
	textPtr, _ := windows.UTF16PtrFromString(text)
	_, _ = windows.MessageBox(0, textPtr, titlePtr, windows.MB_ICONERROR|windows.MB_OK)
}

func callError(name string, err error) error {
	if err == nil || err == syscall.Errno(0) {
		return errors.New(name + " failed")
	}
	return fmt.Errorf("%s: %w", name, err)
}
