//go:build !tinygo

package core

import "sync/atomic"

var systemTicks uint32

// getSystemTicks returns the ticks last set with SetTime; host builds have
// no free-running counter so tests control time explicitly.
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
