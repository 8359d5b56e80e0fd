package core

import "sync/atomic"

// TimerFreq is the rate of the system tick counter.
const TimerFreq = 1000000

var (
	scanCycles   uint32
	scanOverruns uint32
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// ScanCycles returns the number of completed scan cycles.
func ScanCycles() uint32 { return atomic.LoadUint32(&scanCycles) }

// ScanOverruns returns how many cycles exceeded their period.
func ScanOverruns() uint32 { return atomic.LoadUint32(&scanOverruns) }
