package core

import "errors"

// MockGPIODriver is a test implementation of GPIODriver wired as a switch
// matrix: a row reads high when a closed switch connects it to a high
// column.
type MockGPIODriver struct {
	pins    map[GPIOPin]bool
	outputs map[GPIOPin]bool
	closed  map[[2]GPIOPin]bool // {col, row}
	ops     []string
	failGet bool
}

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		pins:    make(map[GPIOPin]bool),
		outputs: make(map[GPIOPin]bool),
		closed:  make(map[[2]GPIOPin]bool),
	}
}

func (m *MockGPIODriver) ConfigureOutput(pin GPIOPin) error {
	m.outputs[pin] = true
	m.ops = append(m.ops, "out"+utoa(uint32(pin)))
	return nil
}

func (m *MockGPIODriver) ConfigureInputPullDown(pin GPIOPin) error {
	m.outputs[pin] = false
	m.pins[pin] = false
	m.ops = append(m.ops, "in"+utoa(uint32(pin)))
	return nil
}

func (m *MockGPIODriver) SetPin(pin GPIOPin, value bool) error {
	m.pins[pin] = value
	return nil
}

func (m *MockGPIODriver) GetPin(pin GPIOPin) (bool, error) {
	if m.failGet {
		return false, errors.New("gpio read failed")
	}
	for k, closed := range m.closed {
		if closed && k[1] == pin && m.pins[k[0]] {
			return true, nil
		}
	}
	return m.pins[pin], nil
}

// MockADCDriver returns a programmable value per channel.
type MockADCDriver struct {
	values     map[ADCChannelID]ADCValue
	configured map[ADCChannelID]bool
	err        error
}

func NewMockADCDriver() *MockADCDriver {
	return &MockADCDriver{
		values:     make(map[ADCChannelID]ADCValue),
		configured: make(map[ADCChannelID]bool),
	}
}

func (m *MockADCDriver) ConfigureChannel(ch ADCChannelID) error {
	m.configured[ch] = true
	return nil
}

func (m *MockADCDriver) ReadRaw(ch ADCChannelID) (ADCValue, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.values[ch], nil
}
