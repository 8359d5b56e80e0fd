//go:build rp2040 && !mcp23017

package main

import "keysense/core"

func matrixPins() (cols, rows []core.GPIOPin) {
	return []core.GPIOPin{2, 3, 4, 5}, []core.GPIOPin{6, 7, 8, 9}
}

func buildScanner(cfg *core.Config) (*core.Scanner, error) {
	return core.BuildScanner(cfg, nil, core.TransportReporter{})
}
