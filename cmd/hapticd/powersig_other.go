//go:build !unix

package main

import "os"

// No user signals here; the HTTP /api/pm hooks still work.
var (
	suspendSignal os.Signal
	resumeSignal  os.Signal
)
