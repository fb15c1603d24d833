//go:build windows

package main

import "golang.org/x/sys/windows"

const cpUTF8 = 65001

// setConsoleUTF8 makes CLI output with non-ASCII config paths readable in
// a console window. No-op when the process has no console.
func setConsoleUTF8() {
	_ = windows.SetConsoleOutputCP(cpUTF8)
	_ = windows.SetConsoleCP(cpUTF8)
}
