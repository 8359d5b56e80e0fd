package hall

// Accumulator oversamples raw readings into one averaged sample.
// The sum is wide enough for 255 readings of a 16-bit ADC.
type Accumulator struct {
	sum   uint32
	count uint8
}

// Add accumulates reading. Once sampleCount readings have been added it
// returns their truncated average and resets; otherwise ok is false.
func (a *Accumulator) Add(reading uint16, sampleCount uint8) (avg uint16, ok bool) {
	a.sum += uint32(reading)
	a.count++

	if a.count < sampleCount {
		return 0, false
	}

	avg = uint16(a.sum / uint32(a.count))
	a.Reset()
	return avg, true
}

// Reset drops a partially accumulated batch.
func (a *Accumulator) Reset() {
	a.sum = 0
	a.count = 0
}
