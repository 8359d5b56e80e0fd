// Package periphgpio runs the key matrix and the Hall sensor group on Linux
// boards through periph.io. Rows are read with the SoC pull-down enabled, so
// a closed switch on the strobed column reads High.
package periphgpio

import (
	"errors"
	"fmt"

	"keysense/matrix"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

var ErrPinNotFound = errors.New("periphgpio: pin not found")

// Strobe is a matrix column on a periph output pin.
type Strobe struct {
	Pin gpio.PinOut
}

func (s Strobe) High() error { return s.Pin.Out(gpio.High) }
func (s Strobe) Low() error  { return s.Pin.Out(gpio.Low) }

// Sense is a matrix row on a periph pin.
type Sense struct {
	Pin gpio.PinIO
}

func (s Sense) Output(level bool) error { return s.Pin.Out(gpio.Level(level)) }
func (s Sense) Input() error            { return s.Pin.In(gpio.PullDown, gpio.NoEdge) }
func (s Sense) Get() (bool, error)      { return s.Pin.Read() == gpio.High, nil }
func (s Sense) Drain() error            { return matrix.DrainIO(s) }

// MatrixPins configures cols as low outputs and rows as pulled-down inputs.
func MatrixPins(cols, rows []gpio.PinIO) ([]matrix.StrobePin, []matrix.SensePin, error) {
	strobes := make([]matrix.StrobePin, len(cols))
	for i, p := range cols {
		if err := p.Out(gpio.Low); err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", p, err)
		}
		strobes[i] = Strobe{Pin: p}
	}
	senses := make([]matrix.SensePin, len(rows))
	for i, p := range rows {
		s := Sense{Pin: p}
		if err := s.Input(); err != nil {
			return nil, nil, fmt.Errorf("row %s: %w", p, err)
		}
		senses[i] = s
	}
	return strobes, senses, nil
}

// MatrixPinsByName looks pins up in the periph registry, e.g. "GPIO17".
// host.Init must have run.
func MatrixPinsByName(cols, rows []string) ([]matrix.StrobePin, []matrix.SensePin, error) {
	c, err := lookup(cols)
	if err != nil {
		return nil, nil, err
	}
	r, err := lookup(rows)
	if err != nil {
		return nil, nil, err
	}
	return MatrixPins(c, r)
}

func lookup(names []string) ([]gpio.PinIO, error) {
	pins := make([]gpio.PinIO, len(names))
	for i, n := range names {
		p := gpioreg.ByName(n)
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrPinNotFound, n)
		}
		pins[i] = p
	}
	return pins, nil
}
