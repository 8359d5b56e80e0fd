package core

import "keysense/matrix"

// GPIOStrobe drives a matrix column through the GPIO HAL.
type GPIOStrobe struct {
	driver GPIODriver
	pin    GPIOPin
}

func (s *GPIOStrobe) High() error { return s.driver.SetPin(s.pin, true) }
func (s *GPIOStrobe) Low() error  { return s.driver.SetPin(s.pin, false) }

// GPIOSense reads a matrix row through the GPIO HAL. Rows idle low through
// their pull-down; a strobed column pulls a closed switch's row high.
type GPIOSense struct {
	driver GPIODriver
	pin    GPIOPin
}

func (s *GPIOSense) Output(level bool) error {
	if err := s.driver.ConfigureOutput(s.pin); err != nil {
		return err
	}
	return s.driver.SetPin(s.pin, level)
}

func (s *GPIOSense) Input() error {
	return s.driver.ConfigureInputPullDown(s.pin)
}

func (s *GPIOSense) Get() (bool, error) {
	return s.driver.GetPin(s.pin)
}

func (s *GPIOSense) Drain() error {
	return matrix.DrainIO(s)
}

// ConfigureMatrixPins configures cols as outputs and rows as pulled-down
// inputs on the registered GPIO driver.
func ConfigureMatrixPins(cols, rows []GPIOPin) ([]matrix.StrobePin, []matrix.SensePin, error) {
	d := MustGPIO()

	strobes := make([]matrix.StrobePin, len(cols))
	for i, p := range cols {
		if err := d.ConfigureOutput(p); err != nil {
			return nil, nil, err
		}
		strobes[i] = &GPIOStrobe{driver: d, pin: p}
	}

	senses := make([]matrix.SensePin, len(rows))
	for i, p := range rows {
		if err := d.ConfigureInputPullDown(p); err != nil {
			return nil, nil, err
		}
		senses[i] = &GPIOSense{driver: d, pin: p}
	}
	return strobes, senses, nil
}
