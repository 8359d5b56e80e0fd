// Package hall implements oversampling, calibration and kinematic analysis for
// analog Hall-effect key sensors.
//
// Every averaged sample goes through the same bounded pipeline:
//
//	raw reading -> Accumulator -> NextStatus -> Analyze
//
// Analysis is only produced while a sensor is MagnetDetected. Time is one unit
// per averaged sample; callers recover wall time from the scan period.
package hall

// CalibrationStatus is the classification of a sensor position.
// The numeric values are reported to the host and must not change.
type CalibrationStatus uint8

const (
	NotReady                 CalibrationStatus = 0 // still determining status after power-on
	SensorMissing            CalibrationStatus = 1 // reading near 0
	SensorBroken             CalibrationStatus = 2 // reading above what the ADC supports
	MagnetDetected           CalibrationStatus = 3 // min calibrated, usable range
	MagnetWrongPoleOrMissing CalibrationStatus = 4
	MagnetTooStrong          CalibrationStatus = 5
	MagnetTooWeak            CalibrationStatus = 6
	InvalidIndex             CalibrationStatus = 7 // addressing sentinel, never a sensor's own state
)

var statusNames = [...]string{
	NotReady:                 "not_ready",
	SensorMissing:            "sensor_missing",
	SensorBroken:             "sensor_broken",
	MagnetDetected:           "magnet_detected",
	MagnetWrongPoleOrMissing: "magnet_wrong_pole_or_missing",
	MagnetTooStrong:          "magnet_too_strong",
	MagnetTooWeak:            "magnet_too_weak",
	InvalidIndex:             "invalid_index",
}

func (s CalibrationStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Usable reports whether analysis can be computed in this status.
func (s CalibrationStatus) Usable() bool {
	return s == MagnetDetected
}

// Fault reports whether the status points at a hardware problem rather than
// a sensor that simply has not settled yet.
func (s CalibrationStatus) Fault() bool {
	switch s {
	case SensorMissing, SensorBroken, MagnetWrongPoleOrMissing:
		return true
	}
	return false
}
