package periphgpio

import (
	"errors"
	"fmt"

	"keysense/core"

	"periph.io/x/conn/v3/analog"
)

var ErrNoChannel = errors.New("periphgpio: no ADC pin for channel")

// ADC implements core.ADCDriver over periph analog pins. Channel i is
// pins[i]. Raw readings are rescaled from the pin's range to Bits of
// resolution so thresholds written for the firmware ADC apply unchanged.
type ADC struct {
	pins []analog.PinADC
	Bits uint
}

// NewADC returns a 12-bit ADC over pins.
func NewADC(pins ...analog.PinADC) *ADC {
	return &ADC{pins: pins, Bits: 12}
}

func (a *ADC) pin(ch core.ADCChannelID) (analog.PinADC, error) {
	if int(ch) >= len(a.pins) || a.pins[ch] == nil {
		return nil, fmt.Errorf("%w %d", ErrNoChannel, ch)
	}
	return a.pins[ch], nil
}

func (a *ADC) ConfigureChannel(ch core.ADCChannelID) error {
	_, err := a.pin(ch)
	return err
}

func (a *ADC) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	p, err := a.pin(ch)
	if err != nil {
		return 0, err
	}
	s, err := p.Read()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", p, err)
	}
	lo, hi := p.Range()
	return core.ADCValue(rescale(s.Raw, lo.Raw, hi.Raw, a.Bits)), nil
}

// rescale maps raw in [lo, hi] onto [0, 2^bits-1], clamping outside values.
// An empty range passes raw through, clamped to 16 bits.
func rescale(raw, lo, hi int32, bits uint) uint16 {
	if hi <= lo {
		if raw < 0 {
			return 0
		}
		if raw > 0xFFFF {
			return 0xFFFF
		}
		return uint16(raw)
	}
	if raw <= lo {
		return 0
	}
	if raw >= hi {
		raw = hi
	}
	if bits > 16 {
		bits = 16
	}
	full := int64(1)<<bits - 1
	return uint16(int64(raw-lo) * full / int64(hi-lo))
}
