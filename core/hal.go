package core

// GPIOPin is a target pin number. Matrix columns and rows are both named
// this way in ScanConfig.
type GPIOPin uint32

// GPIODriver drives the matrix lines. Columns are strobed as outputs and
// rows are sensed with pull-downs so an open switch reads low.
type GPIODriver interface {
	ConfigureOutput(pin GPIOPin) error
	ConfigureInputPullDown(pin GPIOPin) error
	SetPin(pin GPIOPin, value bool) error
	GetPin(pin GPIOPin) (bool, error)
}

// ADCChannelID is the target's name for one Hall sensor input.
type ADCChannelID uint8

// ADCValue is a raw sample in the converter's native resolution. Hall
// thresholds and the linearization table use the same units.
type ADCValue uint16

// ADCDriver samples Hall sensors. ConfigureChannel is called once per
// sensor when the scanner is built.
type ADCDriver interface {
	ConfigureChannel(ch ADCChannelID) error
	ReadRaw(ch ADCChannelID) (ADCValue, error)
}

// Drivers are installed by the target before BuildScanner or NewScanner.
var (
	gpioDriver GPIODriver
	adcDriver  ADCDriver
)

func SetGPIODriver(d GPIODriver) { gpioDriver = d }
func SetADCDriver(d ADCDriver)   { adcDriver = d }

// MustGPIO returns the installed GPIO driver and panics if there is none.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("core: no GPIO driver installed")
	}
	return gpioDriver
}

// MustADC returns the installed ADC driver and panics if there is none.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("core: no ADC driver installed")
	}
	return adcDriver
}
