//go:build rp2040

package main

import (
	"errors"
	"machine"

	"keysense/core"
)

var errADCChannel = errors.New("unsupported ADC channel")

// RpAdcDriver implements core.ADCDriver on the four external RP2040 ADC
// inputs (GPIO26-29). Channel IDs are the ADC mux inputs 0-3.
type RpAdcDriver struct {
	channels [4]machine.ADC
	ready    [4]bool
}

// NewRPAdcDriver initializes the ADC block.
func NewRPAdcDriver() *RpAdcDriver {
	machine.InitADC()
	return &RpAdcDriver{}
}

// ConfigureChannel sets up a specific ADC channel (pin mux, etc.).
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannelID) error {
	if ch > 3 {
		return errADCChannel
	}
	if d.ready[ch] {
		return nil
	}

	pins := [4]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3}
	adc := machine.ADC{Pin: pins[ch]}
	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.channels[ch] = adc
	d.ready[ch] = true
	return nil
}

// ReadRaw returns a 12-bit reading. TinyGo scales the RP2040's 12-bit
// conversion to 16 bits, so it is shifted back to match the thresholds.
func (d *RpAdcDriver) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if ch > 3 {
		return 0, errADCChannel
	}
	if !d.ready[ch] {
		if err := d.ConfigureChannel(ch); err != nil {
			return 0, err
		}
	}
	return core.ADCValue(d.channels[ch].Get() >> 4), nil
}
