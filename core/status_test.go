package core

import (
	"testing"

	"keysense/hall"
)

func TestStatusColor(t *testing.T) {
	th := testConfig().Hall.Thresholds()
	sensors, err := hall.New(2, th, hall.LinearTable(4096, 8))
	if err != nil {
		t.Fatalf("hall.New failed: %v", err)
	}

	if c := StatusColor(nil); c != ColorOK {
		t.Errorf("Expected OK for no sensors, got %v", c)
	}
	if c := StatusColor(sensors); c != ColorSettling {
		t.Errorf("Expected settling before calibration, got %v", c)
	}

	feed := func(index int, raw uint16) {
		for i := uint8(0); i < th.SampleCount; i++ {
			sensors.Add(index, raw)
		}
	}
	feed(0, 2000)
	feed(1, 2000)
	if c := StatusColor(sensors); c != ColorOK {
		t.Errorf("Expected OK with both detected, got %v", c)
	}

	feed(1, 4095)
	if c := StatusColor(sensors); c != ColorSettling {
		t.Errorf("Expected settling with a saturated magnet, got %v", c)
	}

	sensors.Reset()
	feed(0, 2000)
	feed(1, 50)
	if c := StatusColor(sensors); c != ColorFault {
		t.Errorf("Expected fault with a missing sensor, got %v", c)
	}
}
