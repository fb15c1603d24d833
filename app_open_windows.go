//go:build windows

package main

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const swShowNormal = 1

// Test seam.
var openFileFn = openFile

// openFile opens path with its associated application.
func openFile(path string) error {
	verb, _ := windows.UTF16PtrFromString("open")
	file, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	if err := windows.ShellExecute(0, verb, file, nil, nil, swShowNormal); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return nil
}
