//go:build rp2040 && mcp23017

package main

import (
	"machine"

	"tinygo.org/x/drivers/mcp23017"

	"keysense/core"
	"keysense/drivers/expander"
)

const (
	expanderAddress = 0x20
	// The expander board pulls its rows up, so columns strobe low.
	expanderActiveLow = true
)

// matrixPins are expander pin numbers: columns on GPA0-3, rows on GPB0-3.
func matrixPins() (cols, rows []core.GPIOPin) {
	return []core.GPIOPin{0, 1, 2, 3}, []core.GPIOPin{8, 9, 10, 11}
}

func buildScanner(cfg *core.Config) (*core.Scanner, error) {
	err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: machine.TWI_FREQ_400KHZ,
		SDA:       machine.GPIO4,
		SCL:       machine.GPIO5,
	})
	if err != nil {
		return nil, err
	}
	dev, err := mcp23017.NewI2C(machine.I2C0, expanderAddress)
	if err != nil {
		return nil, err
	}
	strobes, senses, err := expander.New(dev, pinIndices(cfg.Cols), pinIndices(cfg.Rows), expanderActiveLow)
	if err != nil {
		return nil, err
	}
	return core.BuildScannerWithPins(cfg, strobes, senses, nil, core.TransportReporter{})
}

func pinIndices(pins []core.GPIOPin) []int {
	out := make([]int, len(pins))
	for i, p := range pins {
		out[i] = int(p)
	}
	return out
}
