//go:build windows

// Package osdep holds small OS-specific helpers that do not belong in
// the audio path.
package osdep

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// RelaunchConsole locates the sibling ".exe" of the running binary
// and runs it attached to the current console, with stdin/stdout/
// stderr inherited. This is the console shim trick: a ".com" stub
// built as a console binary relaunches the GUI-subsystem ".exe" so
// command-line users get working standard streams.
//
// args are passed through to the child verbatim. Returns the child's
// exit code.
func RelaunchConsole(args []string) (int, error) {
	self, err := selfPath()
	if err != nil {
		return 1, err
	}

	exe := strings.TrimSuffix(self, filepath.Ext(self)) + ".exe"
	cmdline := windows.ComposeCommandLine(append([]string{exe}, args...))

	cmdlinePtr, err := windows.UTF16PtrFromString(cmdline)
	if err != nil {
		return 1, err
	}
	exePtr, err := windows.UTF16PtrFromString(exe)
	if err != nil {
		return 1, err
	}

	si := &windows.StartupInfo{
		Flags: windows.STARTF_USESTDHANDLES,
	}
	si.Cb = uint32(unsafe.Sizeof(*si))
	si.StdInput, _ = windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	si.StdOutput, _ = windows.GetStdHandle(windows.STD_OUTPUT_HANDLE)
	si.StdErr, _ = windows.GetStdHandle(windows.STD_ERROR_HANDLE)

	pi := &windows.ProcessInformation{}
	err = windows.CreateProcess(exePtr, cmdlinePtr, nil, nil,
		true, // the child inherits the console handles
		0, nil, nil, si, pi)
	if err != nil {
		return 1, fmt.Errorf("launch %s: %w", exe, err)
	}
	defer windows.CloseHandle(pi.Process)
	defer windows.CloseHandle(pi.Thread)

	if _, err := windows.WaitForSingleObject(pi.Process, windows.INFINITE); err != nil {
		return 1, err
	}

	var code uint32
	if err := windows.GetExitCodeProcess(pi.Process, &code); err != nil {
		return 1, err
	}
	return int(code), nil
}

func selfPath() (string, error) {
	buf := make([]uint16, windows.MAX_LONG_PATH)
	n, err := windows.GetModuleFileName(0, &buf[0], uint32(len(buf)))
	if err != nil {
		return "", fmt.Errorf("get module file name: %w", err)
	}
	return windows.UTF16ToString(buf[:n]), nil
}
