package hall

// Lookup linearizes a raw averaged sample into a signed distance unit.
// Implementations must be monotonic non-decreasing and cover every raw code
// the ADC can produce; Distance is never called with an out-of-range index.
type Lookup interface {
	Distance(raw uint16) int16
}

// Table is a precomputed linearization table indexed by raw sample code.
type Table []int16

// Distance implements Lookup.
func (t Table) Distance(raw uint16) int16 {
	return t[raw]
}

// LinearTable builds a size-entry table where entry i is (i - size/2) / scale.
// It is a monotonic stand-in for a measured magnet/sensor curve, used for
// bring-up and tests. Negative entries cover readings on the far side of the
// sensor's center.
func LinearTable(size int, scale int) Table {
	if scale < 1 {
		scale = 1
	}
	t := make(Table, size)
	center := size / 2
	for i := range t {
		t[i] = int16((i - center) / scale)
	}
	return t
}
