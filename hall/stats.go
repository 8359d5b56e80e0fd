package hall

const (
	statsMinSentinel = 0xFFFF
	statsMaxSentinel = 0x0000
)

// Stats tracks the calibrated range of a sensor.
// Min and Max are reset whenever the sensor leaves MagnetDetected;
// Samples counts averaged samples over the sensor's lifetime.
type Stats struct {
	Min     uint16
	Max     uint16
	Samples uint32
}

func newStats() Stats {
	return Stats{Min: statsMinSentinel, Max: statsMaxSentinel}
}

func (s *Stats) observe(sample uint16) {
	if sample > s.Max {
		s.Max = sample
	}
	if sample < s.Min {
		s.Min = sample
	}
	s.Samples++
}

// reset clears the resettable stats (min, max) but keeps Samples.
func (s *Stats) reset() {
	s.Min = statsMinSentinel
	s.Max = statsMaxSentinel
}

// IsReset reports whether min/max hold their sentinel values.
func (s *Stats) IsReset() bool {
	return s.Min == statsMinSentinel && s.Max == statsMaxSentinel
}
