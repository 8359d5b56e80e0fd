//go:build tinygo

package core

import (
	"sync/atomic"
	"time"
)

var bootTime = time.Now()

// tickOffset is added to the boot-relative time by SetTime.
var tickOffset uint32

// getSystemTicks returns microseconds since boot plus any SetTime offset.
// TimerFreq is 1 MHz so one tick is one microsecond.
func getSystemTicks() uint32 {
	return uint32(time.Since(bootTime).Microseconds()) + atomic.LoadUint32(&tickOffset)
}

func setSystemTicks(ticks uint32) {
	now := uint32(time.Since(bootTime).Microseconds())
	atomic.StoreUint32(&tickOffset, ticks-now)
}
