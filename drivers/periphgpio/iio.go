package periphgpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
)

// IIOBase is where the kernel exposes industrial I/O devices.
var IIOBase = "/sys/bus/iio/devices"

// IIOPin is one voltage channel of a Linux IIO ADC, read through sysfs.
type IIOPin struct {
	dir     string
	channel int
	bits    uint
	scale   float64 // mV per LSB, 0 when the device exports none
}

// NewIIOPin opens channel of the IIO device directory dir. bits is the
// converter resolution, which sysfs does not expose uniformly.
func NewIIOPin(dir string, channel int, bits uint) (*IIOPin, error) {
	p := &IIOPin{dir: dir, channel: channel, bits: bits}
	if _, err := os.Stat(p.rawPath()); err != nil {
		return nil, fmt.Errorf("iio channel %d: %w", channel, err)
	}
	for _, name := range []string{p.prefix() + "_scale", "in_voltage_scale"} {
		if v, err := readFloat(filepath.Join(dir, name)); err == nil {
			p.scale = v
			break
		}
	}
	return p, nil
}

// FindIIODevice returns the directory of the IIO device called name.
func FindIIODevice(name string) (string, error) {
	entries, err := os.ReadDir(IIOBase)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "iio:device") {
			continue
		}
		dev := filepath.Join(IIOBase, e.Name())
		b, err := os.ReadFile(filepath.Join(dev, "name"))
		if err == nil && strings.TrimSpace(string(b)) == name {
			return dev, nil
		}
	}
	return "", fmt.Errorf("iio device %q not found", name)
}

func (p *IIOPin) prefix() string  { return "in_voltage" + strconv.Itoa(p.channel) }
func (p *IIOPin) rawPath() string { return filepath.Join(p.dir, p.prefix()+"_raw") }

func (p *IIOPin) String() string   { return p.Name() }
func (p *IIOPin) Name() string     { return filepath.Base(p.dir) + "/" + p.prefix() }
func (p *IIOPin) Number() int      { return p.channel }
func (p *IIOPin) Function() string { return string(analog.ADC) }
func (p *IIOPin) Halt() error      { return nil }

func (p *IIOPin) Range() (analog.Sample, analog.Sample) {
	hi := int32(1)<<p.bits - 1
	return analog.Sample{}, analog.Sample{Raw: hi, V: p.volts(hi)}
}

func (p *IIOPin) Read() (analog.Sample, error) {
	b, err := os.ReadFile(p.rawPath())
	if err != nil {
		return analog.Sample{}, err
	}
	raw, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 32)
	if err != nil {
		return analog.Sample{}, fmt.Errorf("%s: %w", p, err)
	}
	return analog.Sample{Raw: int32(raw), V: p.volts(int32(raw))}, nil
}

func (p *IIOPin) volts(raw int32) physic.ElectricPotential {
	return physic.ElectricPotential(float64(raw) * p.scale * float64(physic.MilliVolt))
}

func readFloat(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}

var _ analog.PinADC = (*IIOPin)(nil)
