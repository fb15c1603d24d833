//go:build !windows

package singleinstance

// Lock only records its name off Windows; there is no hook to protect.
type Lock struct {
	name string
}

// TryLock always succeeds off Windows.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errNoName
	}
	return &Lock{name: name}, nil
}

func (l *Lock) Release() error { return nil }

// DefaultMutexName mirrors the Windows naming so logs read the same.
func DefaultMutexName() string { return "winkeylock-local" }
