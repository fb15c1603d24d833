//go:build windows

package singleinstance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"

	"winkeylock/internal/userutil"
)

// Lock owns a named kernel mutex. The kernel drops ownership when the
// process exits, so a crashed instance never blocks the next start.
type Lock struct {
	name   string
	handle windows.Handle
}

// TryLock creates and owns the named mutex. It returns ErrAlreadyRunning
// when another process created it first.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errNoName
	}
	nameUTF16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("mutex name %q: %w", name, err)
	}
	h, err := windows.CreateMutex(nil, true, nameUTF16)
	if err == nil {
		return &Lock{name: name, handle: h}, nil
	}
	if h != 0 {
		windows.CloseHandle(h)
	}
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		return nil, ErrAlreadyRunning
	}
	return nil, fmt.Errorf("CreateMutex %q: %w", name, err)
}

// Release closes the mutex handle. Safe on a nil receiver and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	h := l.handle
	l.handle = 0
	return windows.CloseHandle(h)
}

// DefaultMutexName is scoped to the session and the user, like the control
// pipe name.
func DefaultMutexName() string {
	return userutil.InstanceName(`Local\winkeylock`)
}
