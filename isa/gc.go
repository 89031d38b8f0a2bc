package isa

import (
	"runtime/debug"
)

// disableGC mirrors the teacher's RunProgram: the garbage collector is
// switched off for the run loop's duration (DRAM is allocated up front
// and the loop itself allocates nothing), then restored to whatever
// GOGC was set to beforehand. The returned func restores it.
func disableGC() func() {
	percent := debug.SetGCPercent(-1)
	return func() {
		debug.SetGCPercent(percent)
	}
}
