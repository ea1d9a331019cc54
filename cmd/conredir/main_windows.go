//go:build windows

// conredir is the console shim: built as a console-subsystem ".com"
// stub and placed next to the GUI-subsystem ".exe", it relaunches the
// real binary with inherited console handles so stdout and stderr
// reach the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/andre-d/mpv/pkg/osdep"
)

func main() {
	code, err := osdep.RelaunchConsole(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "conredir: %v\n", err)
	}
	os.Exit(code)
}
