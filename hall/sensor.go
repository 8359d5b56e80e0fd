package hall

// SenseData is the record kept for one physical sensor.
//
// Analysis is non-null only while Cal is MagnetDetected. When Cal leaves
// MagnetDetected, Stats is reset and Analysis is cleared except Raw, which
// keeps the sample that caused the transition.
type SenseData struct {
	Analysis    Analysis
	Cal         CalibrationStatus
	Accumulator Accumulator
	Stats       Stats
}

// NewSenseData returns a record in the NotReady state.
func NewSenseData() SenseData {
	return SenseData{Cal: NotReady, Stats: newStats()}
}

// Add feeds one raw reading through the calibration pipeline.
//
// It returns (nil, nil) while the oversampling batch is incomplete. When a
// batch completes it returns the new analysis if the sensor is usable, or a
// *CalibrationError carrying a snapshot of the record otherwise. The returned
// analysis points into d and is overwritten by the next completed batch.
func (d *SenseData) Add(reading uint16, t *Thresholds, lookup Lookup) (*Analysis, error) {
	var calErr CalibrationError
	a, failed := d.add(reading, t, lookup, &calErr)
	if failed {
		return nil, &calErr
	}
	return a, nil
}

// add is the allocation-free form of Add. On a calibration failure it fills
// calErr and reports failed; calErr.Index is left for the caller to set.
func (d *SenseData) add(reading uint16, t *Thresholds, lookup Lookup, calErr *CalibrationError) (a *Analysis, failed bool) {
	sample, ok := d.Accumulator.Add(reading, t.SampleCount)
	if !ok {
		return nil, false
	}

	d.Stats.observe(sample)

	d.Cal = NextStatus(d.Cal, sample, t)
	if d.Cal != MagnetDetected {
		d.Stats.reset()
		d.Analysis = Analysis{Raw: sample}
		calErr.Data = *d
		return nil, true
	}

	d.Analysis = Analyze(sample, d, lookup)
	return &d.Analysis, false
}
