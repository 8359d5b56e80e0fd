package periphgpio

import (
	"errors"
	"testing"

	"keysense/core"
	"keysense/matrix"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func register(t *testing.T, p *gpiotest.Pin) {
	t.Helper()
	if err := gpioreg.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	t.Cleanup(func() { gpioreg.Unregister(p.N) })
}

func TestDriverLookup(t *testing.T) {
	byNumber := &gpiotest.Pin{N: "150", Num: 150}
	byName := &gpiotest.Pin{N: "GPIO151", Num: 151}
	register(t, byNumber)
	register(t, byName)

	d := NewDriver()
	if err := d.ConfigureOutput(150); err != nil {
		t.Fatalf("ConfigureOutput(150) failed: %v", err)
	}
	if err := d.SetPin(150, true); err != nil {
		t.Fatalf("SetPin failed: %v", err)
	}
	if byNumber.Read() != gpio.High {
		t.Error("Expected pin 150 high")
	}

	if err := d.ConfigureInputPullDown(151); err != nil {
		t.Fatalf("ConfigureInputPullDown(151) failed: %v", err)
	}
	if byName.Pull() != gpio.PullDown {
		t.Errorf("Expected pull-down, got %v", byName.Pull())
	}

	if _, err := d.GetPin(199); !errors.Is(err, ErrPinNotFound) {
		t.Errorf("Expected ErrPinNotFound, got %v", err)
	}
}

func TestDriverRunsScanner(t *testing.T) {
	col := &gpiotest.Pin{N: "160", Num: 160}
	row := &gpiotest.Pin{N: "161", Num: 161}
	register(t, col)
	register(t, row)

	core.SetGPIODriver(NewDriver())
	cfg := &core.Config{
		Cols:         []core.GPIOPin{160},
		Rows:         []core.GPIOPin{161},
		ScanPeriodUS: 1000,
		DebounceUS:   1000,
	}
	s, err := core.BuildScanner(cfg, nil, nil)
	if err != nil {
		t.Fatalf("BuildScanner failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if col.Read() != gpio.High {
		t.Fatal("Expected column strobed")
	}

	// Switch closed while the column is strobed
	row.Lock()
	row.L = gpio.High
	row.Unlock()

	if err := s.Cycle(); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}
	if s.Matrix().Key(0, 0).State() != matrix.On {
		t.Error("Expected key (0,0) on")
	}
	if row.Read() != gpio.Low {
		t.Error("Expected row drained after the cycle")
	}
}
