package matrix

// StrobePin drives one matrix column. High is the active level.
type StrobePin interface {
	High() error
	Low() error
}

// SensePin reads one matrix row.
//
// Drain must drive the line to the inactive level as an output and then
// return it to input mode, in that order, to discharge the row before the
// next column is strobed.
type SensePin interface {
	Get() (bool, error)
	Drain() error
}

// IOPin is the raw capability set of a reconfigurable row pin. Backends that
// expose only these operations can use DrainIO to implement SensePin.Drain.
type IOPin interface {
	Output(level bool) error
	Input() error
	Get() (bool, error)
}

// DrainIO performs the row drain sequence on p.
func DrainIO(p IOPin) error {
	if err := p.Output(false); err != nil {
		return err
	}
	return p.Input()
}

// IOSense wraps an IOPin as a SensePin.
type IOSense struct {
	Pin IOPin
}

func (s IOSense) Get() (bool, error) { return s.Pin.Get() }

func (s IOSense) Drain() error { return DrainIO(s.Pin) }
