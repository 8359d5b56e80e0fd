package hall

import "errors"

// Thresholds configures a whole sensor group. One value is shared by every
// sensor in a Sensors collection; nothing here is stored per sensor.
//
// Normal mode (sensor already MagnetDetected):
//   - MinMagnet (MMT): any lower and calibration is reset
//   - MaxSensor (MX):  max sensor value
//
// Calibration mode:
//   - MinOK (MNOK):    min valid calibration, lower means wrong pole
//   - MaxOK (MXOK):    max valid calibration, higher means a bad sensor
//   - NoSensor (NS):   no sensor detected below this value
type Thresholds struct {
	// SampleCount is the oversampling factor. Powers of two keep the
	// average a shift on small cores.
	SampleCount uint8

	MinMagnet uint16
	MaxSensor uint16
	MinOK     uint16
	MaxOK     uint16
	NoSensor  uint16
}

var (
	ErrZeroSampleCount   = errors.New("hall: sample count must be at least 1")
	ErrThresholdOrdering = errors.New("hall: thresholds must satisfy NoSensor <= MinOK <= MaxOK")
)

// Validate checks the thresholds for settings that make the state machine
// degenerate. Overflow safety against the lookup table range is the caller's
// responsibility and is not checked.
func (t *Thresholds) Validate() error {
	if t.SampleCount == 0 {
		return ErrZeroSampleCount
	}
	if t.NoSensor > t.MinOK || t.MinOK > t.MaxOK {
		return ErrThresholdOrdering
	}
	return nil
}

// NextStatus computes the calibration status that follows current after
// observing an averaged sample.
//
// MagnetTooStrong and MagnetTooWeak latch while in calibration mode so a
// reading sitting on a threshold does not oscillate between classifications.
func NextStatus(current CalibrationStatus, sample uint16, t *Thresholds) CalibrationStatus {
	if current == MagnetDetected {
		// Signed so MaxSensor == 0 does not wrap
		if int32(sample) >= int32(t.MaxSensor)-1 {
			return MagnetTooStrong
		}
		if sample < t.MinMagnet {
			return MagnetTooWeak
		}
		return MagnetDetected
	}

	if sample > t.MaxOK {
		if current == MagnetTooStrong {
			return MagnetTooStrong
		}
		return SensorBroken
	}
	if sample < t.NoSensor {
		return SensorMissing
	}
	if sample < t.MinOK {
		if current == MagnetTooWeak {
			return MagnetTooWeak
		}
		return MagnetWrongPoleOrMissing
	}
	return MagnetDetected
}
