//go:build !windows

package main

import "errors"

// Test seam.
var openFileFn = func(string) error {
	return errors.New("opening files is only supported on Windows")
}
