//go:build windows

package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32DLL.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32DLL.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32DLL.NewProc("UnhookWindowsHookEx")
	procGetMessageW         = user32DLL.NewProc("GetMessageW")
	procTranslateMessage    = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW    = user32DLL.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW        = user32DLL.NewProc("PeekMessageW")
)

const (
	whKeyboardLL = 13
	wmQuit       = 0x0012
	pmNoRemove   = 0x0000

	stopTimeout = 2 * time.Second
)

// kbdLLHookStruct mirrors the Win32 KBDLLHOOKSTRUCT.
type kbdLLHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

type loopReady struct {
	threadID uint32
	err      error
}

// installation is the single active hook. Non-nil means the message loop
// goroutine is running and owns the hook handle.
type installation struct {
	threadID uint32
	doneCh   chan struct{}
}

var (
	installMu sync.Mutex
	installed *installation

	// active is read by the callback on the hook thread.
	active atomic.Pointer[Dispatcher]

	callbackOnce sync.Once
	callback     uintptr
)

// Install registers d as the process-wide low-level keyboard hook. The hook
// runs on a dedicated OS thread with its own message loop until Uninstall.
func Install(d *Dispatcher) error {
	if d == nil {
		return fmt.Errorf("%w: dispatcher is nil", ErrInstall)
	}
	if err := user32DLL.Load(); err != nil {
		return fmt.Errorf("%w: user32.dll is unavailable: %w", ErrInstall, err)
	}

	installMu.Lock()
	defer installMu.Unlock()
	if installed != nil {
		return ErrAlreadyInstalled
	}

	callbackOnce.Do(func() {
		callback = windows.NewCallback(lowLevelKeyboardProc)
	})

	d.Reset()
	active.Store(d)

	readyCh := make(chan loopReady, 1)
	doneCh := make(chan struct{})
	go runHookLoop(readyCh, doneCh)

	ready := <-readyCh
	if ready.err != nil {
		active.Store(nil)
		return fmt.Errorf("%w: %w", ErrInstall, ready.err)
	}

	installed = &installation{threadID: ready.threadID, doneCh: doneCh}
	slog.Info("[DEBUG-HOOK] keyboard hook installed", "threadID", ready.threadID)
	return nil
}

// Uninstall removes the hook and waits for its message loop to exit.
func Uninstall() error {
	installMu.Lock()
	defer installMu.Unlock()
	if installed == nil {
		return ErrNotInstalled
	}
	inst := installed
	installed = nil

	stopErr := postQuit(inst.threadID)

	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()
	select {
	case <-inst.doneCh:
	case <-timer.C:
		slog.Warn("[WARN-HOOK] message loop stop timed out, thread may leak", "threadID", inst.threadID)
		stopErr = errors.Join(stopErr, fmt.Errorf("hook message loop stop timed out (threadID=%d)", inst.threadID))
	}
	active.Store(nil)
	return stopErr
}

// Installed reports whether a hook is active.
func Installed() bool {
	installMu.Lock()
	defer installMu.Unlock()
	return installed != nil
}

func lowLevelKeyboardProc(nCode, wParam, lParam uintptr) uintptr {
	if d := active.Load(); d != nil && int32(nCode) >= 0 && lParam != 0 {
		ev := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
		verdict := d.Handle(int32(nCode), uint32(wParam), KeyInfo{
			VKCode:    ev.vkCode,
			ScanCode:  ev.scanCode,
			Flags:     ev.flags,
			Time:      ev.time,
			ExtraInfo: ev.dwExtraInfo,
		})
		if verdict.Swallow() {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func runHookLoop(readyCh chan<- loopReady, doneCh chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(doneCh)

	threadID := windows.GetCurrentThreadId()

	// Creates the thread message queue so PostThreadMessageW can deliver WM_QUIT.
	var qmsg winMsg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)

	var module windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &module); err != nil {
		slog.Warn("[WARN-HOOK] GetModuleHandleEx failed, installing without module handle", "error", err)
		module = 0
	}

	hhook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, callback, uintptr(module), 0)
	if hhook == 0 {
		readyCh <- loopReady{err: callError("SetWindowsHookExW", err)}
		return
	}
	defer func() {
		ret, _, err := procUnhookWindowsHookEx.Call(hhook)
		if ret == 0 {
			slog.Error("[WARN-HOOK] UnhookWindowsHookEx failed", "error", err)
		}
	}()

	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("[WARN-HOOK] GetMessageW returned error, exiting loop", "error", lastErr)
			return
		case 0:
			slog.Debug("[DEBUG-HOOK] message loop received WM_QUIT")
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func postQuit(threadID uint32) error {
	if threadID == 0 {
		return errors.New("cannot post WM_QUIT: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if res != 0 {
		return nil
	}
	return callError("PostThreadMessageW", err)
}

func callError(name string, err error) error {
	if err == nil || err == syscall.Errno(0) {
		return errors.New(name + " failed")
	}
	return fmt.Errorf("%s: %w", name, err)
}
