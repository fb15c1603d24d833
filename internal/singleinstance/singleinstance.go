// Package singleinstance keeps a second winkeylock from installing a second
// keyboard hook for the same user.
package singleinstance

import "errors"

// ErrAlreadyRunning is returned by TryLock when another instance holds the mutex.
var ErrAlreadyRunning = errors.New("another instance is already running")

var errNoName = errors.New("mutex name is required")

// Name returns the mutex name, or "" for a nil lock.
func (l *Lock) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}
