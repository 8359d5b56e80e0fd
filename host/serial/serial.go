// Package serial opens the USB-CDC link to a keysense board.
package serial

import (
	"io"
	"time"
)

// Port is the byte stream the monitor talks over. Tests substitute an
// in-memory pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush discards anything queued in either direction.
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string `yaml:"device"`

	// Baud is ignored by USB CDC but required by the OS driver.
	Baud int `yaml:"baud"`

	// ReadTimeout bounds a single Read. Zero blocks.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// DefaultBaud is what the firmware's UART fallback runs at.
const DefaultBaud = 115200

// DefaultConfig returns the configuration used for a board on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

func (c *Config) applyDefaults() {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
}
