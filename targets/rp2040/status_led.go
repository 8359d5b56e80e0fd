//go:build rp2040

package main

import (
	"machine"

	"keysense/core"
	"keysense/hall"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// statusLEDPeriod is how often the pixel is refreshed, in timer ticks.
var statusLEDPeriod = core.TimerFromUS(50000)

// statusLED shows the Hall group health on a WS2812 pixel driven by a PIO
// state machine, so the scan loop never bit-bangs the LED timing.
type statusLED struct {
	ws      *piolib.WS2812B
	sensors *hall.Sensors
	last    core.RGB
	shown   bool
	timer   core.Timer
}

func newStatusLED(pin machine.Pin, sensors *hall.Sensors) (*statusLED, error) {
	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return nil, err
	}
	ws, err := piolib.NewWS2812B(sm, pin)
	if err != nil {
		return nil, err
	}
	l := &statusLED{ws: ws, sensors: sensors}
	l.timer.Handler = l.refresh
	return l, nil
}

// Start schedules the periodic refresh.
func (l *statusLED) Start(now uint32) {
	l.timer.WakeTime = now
	core.ScheduleTimer(&l.timer)
}

func (l *statusLED) refresh(t *core.Timer) uint8 {
	c := core.StatusColor(l.sensors)
	if (!l.shown || c != l.last) && !l.ws.IsQueueFull() {
		l.ws.PutRGB(c.R, c.G, c.B)
		l.last, l.shown = c, true
	}
	t.WakeTime += statusLEDPeriod
	return core.SF_RESCHEDULE
}
