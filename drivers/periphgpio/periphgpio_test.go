package periphgpio

import (
	"errors"
	"testing"

	"keysense/core"
	"keysense/matrix"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestMatrixPins(t *testing.T) {
	col := &gpiotest.Pin{N: "COL0", Num: 100, L: gpio.High}
	row := &gpiotest.Pin{N: "ROW0", Num: 101, L: gpio.High}

	cols, rows, err := MatrixPins([]gpio.PinIO{col}, []gpio.PinIO{row})
	if err != nil {
		t.Fatalf("MatrixPins failed: %v", err)
	}
	if col.Read() != gpio.Low {
		t.Error("Expected column driven low")
	}
	if row.Pull() != gpio.PullDown || row.Read() != gpio.Low {
		t.Errorf("Expected row pulled down, got %v %v", row.Pull(), row.Read())
	}

	if err := cols[0].High(); err != nil {
		t.Fatalf("High failed: %v", err)
	}
	if col.Read() != gpio.High {
		t.Error("Expected column high")
	}

	// Simulate a closed switch
	row.Lock()
	row.L = gpio.High
	row.Unlock()
	if on, err := rows[0].Get(); err != nil || !on {
		t.Errorf("Expected row on, got %v %v", on, err)
	}

	if err := rows[0].Drain(); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if on, _ := rows[0].Get(); on {
		t.Error("Expected row discharged after drain")
	}
	if row.Pull() != gpio.PullDown {
		t.Errorf("Expected pull-down restored, got %v", row.Pull())
	}
}

func TestMatrixScan(t *testing.T) {
	c0 := &gpiotest.Pin{N: "C0", Num: 110}
	c1 := &gpiotest.Pin{N: "C1", Num: 111}
	r0 := &gpiotest.Pin{N: "R0", Num: 112}

	cols, rows, err := MatrixPins([]gpio.PinIO{c0, c1}, []gpio.PinIO{r0})
	if err != nil {
		t.Fatalf("MatrixPins failed: %v", err)
	}
	m, err := matrix.New(cols, rows, matrix.Timing{ScanPeriodUS: 1000, DebounceUS: 1000})
	if err != nil {
		t.Fatalf("matrix.New failed: %v", err)
	}

	if _, err := m.NextStrobe(); err != nil {
		t.Fatalf("NextStrobe failed: %v", err)
	}
	if c0.Read() != gpio.High || c1.Read() != gpio.Low {
		t.Errorf("Expected only column 0 high, got %v %v", c0.Read(), c1.Read())
	}
	r0.Out(gpio.High)
	events, err := m.Sense()
	if err != nil {
		t.Fatalf("Sense failed: %v", err)
	}
	if !events[0].Pressed() {
		t.Error("Expected key (0,0) pressed")
	}
}

func TestMatrixPinsByName(t *testing.T) {
	p := &gpiotest.Pin{N: "KEYSENSE_TEST_COL", Num: 120}
	if err := gpioreg.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	t.Cleanup(func() { gpioreg.Unregister(p.N) })

	if _, _, err := MatrixPinsByName([]string{p.N}, []string{"NO_SUCH_PIN"}); !errors.Is(err, ErrPinNotFound) {
		t.Errorf("Expected ErrPinNotFound, got %v", err)
	}
	if _, _, err := MatrixPinsByName([]string{p.N}, nil); err != nil {
		t.Errorf("Expected lookup to succeed, got %v", err)
	}
}

type fakeADC struct {
	name    string
	raw     int32
	lo, hi  int32
	readErr error
}

func (f *fakeADC) String() string   { return f.name }
func (f *fakeADC) Halt() error      { return nil }
func (f *fakeADC) Name() string     { return f.name }
func (f *fakeADC) Number() int      { return -1 }
func (f *fakeADC) Function() string { return string(analog.ADC) }

func (f *fakeADC) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{Raw: f.lo}, analog.Sample{Raw: f.hi}
}

func (f *fakeADC) Read() (analog.Sample, error) {
	return analog.Sample{Raw: f.raw}, f.readErr
}

func TestADC(t *testing.T) {
	ten := &fakeADC{name: "A0", raw: 512, hi: 1023}
	raw := &fakeADC{name: "A1", raw: 2000}
	a := NewADC(ten, raw)

	var _ core.ADCDriver = a

	if err := a.ConfigureChannel(1); err != nil {
		t.Errorf("ConfigureChannel failed: %v", err)
	}
	if err := a.ConfigureChannel(2); !errors.Is(err, ErrNoChannel) {
		t.Errorf("Expected ErrNoChannel, got %v", err)
	}

	// 512/1023 of a 12-bit range
	if v, err := a.ReadRaw(0); err != nil || v != 2049 {
		t.Errorf("Expected 2049, got %d %v", v, err)
	}
	if v, err := a.ReadRaw(1); err != nil || v != 2000 {
		t.Errorf("Expected passthrough 2000, got %d %v", v, err)
	}

	ten.raw = 5000
	if v, _ := a.ReadRaw(0); v != 4095 {
		t.Errorf("Expected clamp to 4095, got %d", v)
	}

	readErr := errors.New("iio read failed")
	ten.readErr = readErr
	if _, err := a.ReadRaw(0); !errors.Is(err, readErr) {
		t.Errorf("Expected read error, got %v", err)
	}
}

func TestRescale(t *testing.T) {
	tests := []struct {
		raw, lo, hi int32
		bits        uint
		want        uint16
	}{
		{0, 0, 1023, 12, 0},
		{1023, 0, 1023, 12, 4095},
		{-5, 0, 1023, 12, 0},
		{150, 100, 200, 8, 127},
		{70000, 0, 0, 12, 0xFFFF},
		{-1, 0, 0, 12, 0},
		{65535, 0, 65535, 20, 65535},
	}
	for _, tt := range tests {
		if got := rescale(tt.raw, tt.lo, tt.hi, tt.bits); got != tt.want {
			t.Errorf("rescale(%d, %d, %d, %d): expected %d, got %d", tt.raw, tt.lo, tt.hi, tt.bits, tt.want, got)
		}
	}
}
