package hall

// MaxSensors bounds a Sensors collection. Sensor indices travel as one byte
// in host reports.
const MaxSensors = 256

// Sensors is a fixed-capacity, index-addressed collection of sensor records
// sharing one set of thresholds and one lookup table.
//
// All storage, including the calibration error returned for each sensor, is
// allocated by New; Add never allocates.
type Sensors struct {
	thresholds *Thresholds
	lookup     Lookup
	data       []SenseData
	errs       []CalibrationError
}

// New allocates capacity sensor records, all NotReady.
func New(capacity int, t *Thresholds, lookup Lookup) (*Sensors, error) {
	if capacity < 1 || capacity > MaxSensors {
		return nil, &FailedToResizeError{Size: capacity}
	}
	if t == nil || lookup == nil {
		return nil, ErrMissingConfig
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	s := &Sensors{
		thresholds: t,
		lookup:     lookup,
		data:       make([]SenseData, capacity),
		errs:       make([]CalibrationError, capacity),
	}
	for i := range s.data {
		s.data[i] = NewSenseData()
		s.errs[i].Index = i
	}
	return s, nil
}

// Add feeds a raw reading to sensor index.
//
// The returned *Analysis and *CalibrationError point into s and stay valid
// until the next Add on the same index.
func (s *Sensors) Add(index int, reading uint16) (*Analysis, error) {
	if index < 0 || index >= len(s.data) {
		return nil, &InvalidSensorError{Index: index}
	}

	calErr := &s.errs[index]
	a, failed := s.data[index].add(reading, s.thresholds, s.lookup, calErr)
	if failed {
		calErr.Index = index
		return nil, calErr
	}
	return a, nil
}

// Data returns the record of sensor index. It fails with *CalibrationError
// while the sensor has never been classified.
func (s *Sensors) Data(index int) (*SenseData, error) {
	if index < 0 || index >= len(s.data) {
		return nil, &InvalidSensorError{Index: index}
	}
	d := &s.data[index]
	if d.Cal == NotReady {
		return nil, &CalibrationError{Index: index, Data: *d}
	}
	return d, nil
}

// Status returns the calibration status of sensor index, or InvalidIndex.
func (s *Sensors) Status(index int) CalibrationStatus {
	if index < 0 || index >= len(s.data) {
		return InvalidIndex
	}
	return s.data[index].Cal
}

// Reset returns every sensor to NotReady. Lifetime sample counters are kept.
func (s *Sensors) Reset() {
	for i := range s.data {
		samples := s.data[i].Stats.Samples
		s.data[i] = NewSenseData()
		s.data[i].Stats.Samples = samples
	}
}

// Len returns the fixed capacity.
func (s *Sensors) Len() int {
	return len(s.data)
}

// Thresholds returns the shared thresholds.
func (s *Sensors) Thresholds() *Thresholds {
	return s.thresholds
}
