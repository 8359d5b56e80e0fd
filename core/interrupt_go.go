//go:build !tinygo

package core

// Host builds run the scheduler from one goroutine, so masking is a no-op.
type interruptState uintptr

func disableInterrupts() interruptState      { return 0 }
func restoreInterrupts(state interruptState) {}
