//go:build !windows

// Package osdep holds small OS-specific helpers that do not belong in
// the audio path.
package osdep

import "fmt"

// RelaunchConsole is only meaningful on Windows, where GUI-subsystem
// binaries lose their console streams.
func RelaunchConsole(args []string) (int, error) {
	return 1, fmt.Errorf("console relaunch is a Windows-only mechanism")
}
