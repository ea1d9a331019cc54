//go:build !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "conredir: console relaunch is a Windows-only mechanism")
	os.Exit(1)
}
