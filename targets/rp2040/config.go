//go:build rp2040

package main

import "keysense/core"

// boardConfig is the reference macropad: a 4x4 switch matrix and four
// Hall-effect keys on ADC0-3 (GPIO26-29). The matrix pins depend on the
// build: GPIO2-9 directly, or an MCP23017 with the mcp23017 tag.
func boardConfig() *core.Config {
	c := core.DefaultConfig()
	c.Name = "keysense-rp2040"
	c.Cols, c.Rows = matrixPins()
	c.HallChannels = []core.ADCChannelID{0, 1, 2, 3}
	return c
}

// statusLEDPin drives the WS2812 status pixel.
const statusLEDPin = 16
