//go:build !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "autopause runs as a DLL inside a Windows process")
	os.Exit(1)
}
