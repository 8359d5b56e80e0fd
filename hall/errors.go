package hall

import "errors"

var (
	// ErrNotCalibrated is matched by *CalibrationError.
	ErrNotCalibrated = errors.New("hall: sensor not calibrated")
	// ErrInvalidSensor is matched by *InvalidSensorError.
	ErrInvalidSensor = errors.New("hall: invalid sensor index")
	// ErrFailedToResize is matched by *FailedToResizeError.
	ErrFailedToResize = errors.New("hall: failed to size sensor array")
	// ErrMissingConfig is returned by New without thresholds or a lookup.
	ErrMissingConfig = errors.New("hall: thresholds and lookup are required")
)

// CalibrationError is returned when a sensor is not usable this cycle.
// Data is a snapshot of the sensor record taken when the error was raised.
// It is an expected, recoverable condition: callers keep feeding readings.
type CalibrationError struct {
	Index int
	Data  SenseData
}

func (e *CalibrationError) Error() string {
	return "hall: sensor " + itoa(e.Index) + " not calibrated: " + e.Data.Cal.String()
}

func (e *CalibrationError) Is(target error) bool {
	return target == ErrNotCalibrated
}

// InvalidSensorError reports an index outside the sensor array.
type InvalidSensorError struct {
	Index int
}

func (e *InvalidSensorError) Error() string {
	return "hall: invalid sensor index " + itoa(e.Index)
}

func (e *InvalidSensorError) Is(target error) bool {
	return target == ErrInvalidSensor
}

// FailedToResizeError reports a capacity the array cannot be built with.
type FailedToResizeError struct {
	Size int
}

func (e *FailedToResizeError) Error() string {
	return "hall: failed to size sensor array to " + itoa(e.Size)
}

func (e *FailedToResizeError) Is(target error) bool {
	return target == ErrFailedToResize
}

// itoa avoids strconv/fmt so the package stays small under TinyGo.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
