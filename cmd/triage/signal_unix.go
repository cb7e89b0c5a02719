//go:build !windows

package main

import (
	"os"
	"syscall"
)

// SIGTERM is what systemd and kubernetes send on stop.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
