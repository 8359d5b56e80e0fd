package periphgpio

import (
	"fmt"
	"strconv"
	"sync"

	"keysense/core"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Driver implements core.GPIODriver on top of the periph registry so that
// core.BuildScanner runs unchanged on a Linux host. Pin n is looked up as
// "n", then "GPIOn".
type Driver struct {
	mu   sync.Mutex
	pins map[core.GPIOPin]gpio.PinIO
}

func NewDriver() *Driver {
	return &Driver{pins: make(map[core.GPIOPin]gpio.PinIO)}
}

func (d *Driver) pin(n core.GPIOPin) (gpio.PinIO, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pins[n]; ok {
		return p, nil
	}
	name := strconv.FormatUint(uint64(n), 10)
	p := gpioreg.ByName(name)
	if p == nil {
		p = gpioreg.ByName("GPIO" + name)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	d.pins[n] = p
	return p, nil
}

func (d *Driver) ConfigureOutput(n core.GPIOPin) error {
	p, err := d.pin(n)
	if err != nil {
		return err
	}
	return p.Out(gpio.Low)
}

func (d *Driver) ConfigureInputPullDown(n core.GPIOPin) error {
	p, err := d.pin(n)
	if err != nil {
		return err
	}
	return p.In(gpio.PullDown, gpio.NoEdge)
}

func (d *Driver) SetPin(n core.GPIOPin, value bool) error {
	p, err := d.pin(n)
	if err != nil {
		return err
	}
	return p.Out(gpio.Level(value))
}

func (d *Driver) GetPin(n core.GPIOPin) (bool, error) {
	p, err := d.pin(n)
	if err != nil {
		return false, err
	}
	return p.Read() == gpio.High, nil
}

var _ core.GPIODriver = (*Driver)(nil)
