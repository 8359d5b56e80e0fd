// Package expander drives a key matrix from an MCP23017 I2C GPIO expander.
//
// The chip only has pull-ups, so boards wired active-low strobe a column by
// pulling it low and read rows with the pull-up and input inversion enabled.
// The matrix package still sees High as the active column level and true as
// a closed switch either way.
package expander

import (
	"errors"

	"keysense/matrix"

	"tinygo.org/x/drivers/mcp23017"
)

var (
	ErrPinInUse = errors.New("expander: pin used twice")
	ErrPinRange = errors.New("expander: pin out of range")
)

// Bank owns the mode registers of one expander. Pin modes are cached so a
// row drain costs mode writes only, never a read-modify-write.
type Bank struct {
	dev       *mcp23017.Device
	modes     [mcp23017.PinCount]mcp23017.PinMode
	activeLow bool
}

// New configures cols as outputs at the inactive level and rows as inputs,
// and returns them as matrix pins. Pins not listed are left as inputs.
func New(dev *mcp23017.Device, cols, rows []int, activeLow bool) ([]matrix.StrobePin, []matrix.SensePin, error) {
	b := &Bank{dev: dev, activeLow: activeLow}

	used := make(map[int]bool, len(cols)+len(rows))
	for _, p := range append(append([]int(nil), cols...), rows...) {
		if p < 0 || p >= mcp23017.PinCount {
			return nil, nil, ErrPinRange
		}
		if used[p] {
			return nil, nil, ErrPinInUse
		}
		used[p] = true
	}

	for i := range b.modes {
		b.modes[i] = mcp23017.Input
	}
	for _, p := range cols {
		b.modes[p] = mcp23017.Output
	}
	for _, p := range rows {
		b.modes[p] = b.inputMode()
	}
	if err := dev.SetModes(b.modes[:]); err != nil {
		return nil, nil, err
	}

	strobes := make([]matrix.StrobePin, len(cols))
	for i, p := range cols {
		s := &Strobe{bank: b, pin: dev.Pin(p)}
		if err := s.Low(); err != nil {
			return nil, nil, err
		}
		strobes[i] = s
	}
	senses := make([]matrix.SensePin, len(rows))
	for i, p := range rows {
		senses[i] = &Sense{bank: b, index: p, pin: dev.Pin(p)}
	}
	return strobes, senses, nil
}

func (b *Bank) inputMode() mcp23017.PinMode {
	if b.activeLow {
		return mcp23017.Input | mcp23017.Pullup | mcp23017.Invert
	}
	return mcp23017.Input
}

// level converts an active/inactive level into the electrical one.
func (b *Bank) level(active bool) bool {
	return active != b.activeLow
}

func (b *Bank) setMode(index int, mode mcp23017.PinMode) error {
	if b.modes[index] == mode {
		return nil
	}
	b.modes[index] = mode
	return b.dev.SetModes(b.modes[:])
}

// Strobe is a matrix column on the expander.
type Strobe struct {
	bank *Bank
	pin  mcp23017.Pin
}

func (s *Strobe) High() error { return s.pin.Set(s.bank.level(true)) }
func (s *Strobe) Low() error  { return s.pin.Set(s.bank.level(false)) }

// Sense is a matrix row on the expander.
type Sense struct {
	bank  *Bank
	index int
	pin   mcp23017.Pin
}

// Output drives the row at the given logical level.
func (s *Sense) Output(level bool) error {
	if err := s.pin.Set(s.bank.level(level)); err != nil {
		return err
	}
	return s.bank.setMode(s.index, mcp23017.Output)
}

func (s *Sense) Input() error {
	return s.bank.setMode(s.index, s.bank.inputMode())
}

// Get returns true for a closed switch on the strobed column. Inversion is
// done by the chip on active-low boards.
func (s *Sense) Get() (bool, error) {
	return s.pin.Get()
}

func (s *Sense) Drain() error {
	return matrix.DrainIO(s)
}
