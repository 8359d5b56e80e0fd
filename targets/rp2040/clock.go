//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"keysense/core"
)

// RP2040 timer peripheral
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// InitClock registers the MCU identity. The RP2040 timer counts
// microseconds, matching core.TimerFreq.
func InitClock() {
	core.GetGlobalDictionary().AddConstant("MCU", "rp2040")
}

// GetHardwareTime reads the low 32 bits of the microsecond counter
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// UpdateSystemTime updates the core timer with hardware time
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}
