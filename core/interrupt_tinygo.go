//go:build tinygo

package core

import "runtime/interrupt"

type interruptState = interrupt.State

func disableInterrupts() interruptState      { return interrupt.Disable() }
func restoreInterrupts(state interruptState) { interrupt.Restore(state) }
