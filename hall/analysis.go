package hall

// Analysis is the kinematic state derived from averaged samples.
//
//	d = L(sample) - L(min)  distance
//	v = (d - d_prev) / 1    velocity
//	a = (v - v_prev) / 2    acceleration
//	j = (a - a_prev)        jerk, the / 3 is left out
//
// Each step assumes one time unit between averaged samples:
//
//	           4  5 ... <- jerk
//	         / | /|
//	        3  4  5 ... <- acceleration
//	      / | /| /|
//	     2  3  4  5 ... <- velocity
//	   / | /| /| /|
//	  1  2  3  4  5 ... <- distance
//	 ----------------------
//	  1  2  3  4  5 ... <== averaged sample
//
// Thresholds compared against Jerk must be multiplied by 3 to compensate.
// The zero value is the null analysis.
type Analysis struct {
	Raw          uint16
	Distance     int16
	Velocity     int16
	Acceleration int16
	Jerk         int16
}

// IsNull reports whether a holds no usable analysis. Raw is ignored because a
// cleared analysis still records the sample that caused it to be cleared.
func (a *Analysis) IsNull() bool {
	return a.Distance == 0 && a.Velocity == 0 && a.Acceleration == 0 && a.Jerk == 0
}

// Analyze computes the next analysis from sample and the previous sensor
// record. prev must already carry the calibration status and stats for this
// sample; anything other than MagnetDetected yields the null analysis.
func Analyze(sample uint16, prev *SenseData, lookup Lookup) Analysis {
	if prev.Cal != MagnetDetected {
		return Analysis{}
	}

	// The table goes negative for readings past the sensor center, so the
	// calibrated minimum is subtracted to keep rest position at zero.
	distance := lookup.Distance(sample) - lookup.Distance(prev.Stats.Min)
	velocity := distance - prev.Analysis.Distance
	acceleration := (velocity - prev.Analysis.Velocity) / 2
	jerk := acceleration - prev.Analysis.Acceleration

	return Analysis{
		Raw:          sample,
		Distance:     distance,
		Velocity:     velocity,
		Acceleration: acceleration,
		Jerk:         jerk,
	}
}
