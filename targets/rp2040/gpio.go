//go:build rp2040

package main

import (
	"errors"
	"machine"

	"keysense/core"
)

var errPinRange = errors.New("gpio pin out of range")

// RPGPIODriver implements core.GPIODriver on the RP2040 SIO pins.
//
// Row pins flip between output and input on every drain, so Configure*
// always reprograms the pad rather than skipping pins seen before.
type RPGPIODriver struct {
	pins [30]machine.Pin
	used [30]bool
}

func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{}
}

func (d *RPGPIODriver) pin(pin core.GPIOPin) (machine.Pin, error) {
	if pin >= 30 {
		return machine.NoPin, errPinRange
	}
	if !d.used[pin] {
		d.pins[pin] = machine.Pin(pin)
		d.used[pin] = true
	}
	return d.pins[pin], nil
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	p.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	p.Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	p, err := d.pin(pin)
	if err != nil {
		return false, err
	}
	return p.Get(), nil
}
