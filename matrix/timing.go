package matrix

import "time"

// Timing is the per-matrix scan configuration. Durations are converted into
// whole scan cycles once; the debounce engine only counts cycles.
type Timing struct {
	ScanPeriodUS uint32 // time between two Sense calls on the same column
	DebounceUS   uint32
	IdleMS       uint32
}

// DefaultTiming matches a 1 kHz per-column scan with a 5 ms debounce window.
var DefaultTiming = Timing{
	ScanPeriodUS: 1000,
	DebounceUS:   5000,
	IdleMS:       500,
}

// DebounceCycles returns the debounce window in scan cycles, at least 1.
func (t Timing) DebounceCycles() uint32 {
	if t.ScanPeriodUS == 0 {
		return 1
	}
	n := t.DebounceUS / t.ScanPeriodUS
	if n < 1 {
		n = 1
	}
	return n
}

// IdleCycles returns the idle duration in scan cycles.
func (t Timing) IdleCycles() uint32 {
	if t.ScanPeriodUS == 0 {
		return 0
	}
	return uint32(uint64(t.IdleMS) * 1000 / uint64(t.ScanPeriodUS))
}

// Period returns the scan period as a duration.
func (t Timing) Period() time.Duration {
	return time.Duration(t.ScanPeriodUS) * time.Microsecond
}
