// Package matrix scans a strobed switch matrix and debounces every cell.
//
// One column is driven active at a time. Each scan cycle the caller runs
// NextStrobe and then Sense for the same column, back to back, once per
// scan period:
//
//	for {
//		col, err := m.NextStrobe()
//		events, err := m.Sense()
//		// events[row] belongs to cell (col, row)
//		waitForNextPeriod()
//	}
//
// Every per-cycle call is bounded by the matrix dimensions and does not
// allocate. Pin errors are returned unchanged and nothing is retried.
package matrix

import (
	"errors"
	"time"
)

var (
	ErrNoColumns = errors.New("matrix: no column pins")
	ErrNoRows    = errors.New("matrix: no row pins")
)

// Matrix holds the pins, strobe position and debounce grid of one matrix.
type Matrix struct {
	cols   []StrobePin
	rows   []SensePin
	cur    int
	states []KeyState // cols*rows, column major
	events []KeyEvent // one per row, reused by Sense

	timing   Timing
	debounce uint32
	idle     uint32
}

// New builds a matrix over cols and rows and drives every column inactive.
// The first NextStrobe lands on column 0.
func New(cols []StrobePin, rows []SensePin, timing Timing) (*Matrix, error) {
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	m := &Matrix{
		cols:     cols,
		rows:     rows,
		cur:      len(cols) - 1,
		states:   make([]KeyState, len(cols)*len(rows)),
		events:   make([]KeyEvent, len(rows)),
		timing:   timing,
		debounce: timing.DebounceCycles(),
		idle:     timing.IdleCycles(),
	}
	for i := range m.states {
		m.states[i] = NewKeyState()
	}
	if err := m.Clear(); err != nil {
		return nil, err
	}
	return m, nil
}

// Clear drives every column inactive and rewinds the strobe position.
// Debounce state is kept.
func (m *Matrix) Clear() error {
	for _, c := range m.cols {
		if err := c.Low(); err != nil {
			return err
		}
	}
	m.cur = len(m.cols) - 1
	return nil
}

// Reset clears the pins and returns every cell to its initial state.
func (m *Matrix) Reset() error {
	for i := range m.states {
		m.states[i] = NewKeyState()
	}
	return m.Clear()
}

// NextStrobe deactivates the current column, drains every row, then
// activates the next column and returns its index.
func (m *Matrix) NextStrobe() (int, error) {
	if err := m.cols[m.cur].Low(); err != nil {
		return m.cur, err
	}

	for _, r := range m.rows {
		if err := r.Drain(); err != nil {
			return m.cur, err
		}
	}

	if m.cur >= len(m.cols)-1 {
		m.cur = 0
	} else {
		m.cur++
	}

	if err := m.cols[m.cur].High(); err != nil {
		return m.cur, err
	}
	return m.cur, nil
}

// Sense reads every row of the strobed column and feeds the debounce cells.
// The returned slice is indexed by row and reused by the next call.
func (m *Matrix) Sense() ([]KeyEvent, error) {
	base := m.cur * len(m.rows)
	for i, r := range m.rows {
		on, err := r.Get()
		if err != nil {
			return nil, err
		}
		state, idle, cycles := m.states[base+i].Record(on, m.debounce, m.idle)
		m.events[i] = KeyEvent{State: state, Idle: idle, Cycles: cycles}
	}
	return m.events, nil
}

// Key returns the debounce cell at (col, row), or nil when out of range.
func (m *Matrix) Key(col, row int) *KeyState {
	i := m.Index(col, row)
	if i < 0 {
		return nil
	}
	return &m.states[i]
}

// Index returns the cell index of (col, row), or -1 when out of range.
func (m *Matrix) Index(col, row int) int {
	if col < 0 || col >= len(m.cols) || row < 0 || row >= len(m.rows) {
		return -1
	}
	return col*len(m.rows) + row
}

func (m *Matrix) Strobe() int { return m.cur }

func (m *Matrix) Cols() int { return len(m.cols) }

func (m *Matrix) Rows() int { return len(m.rows) }

func (m *Matrix) Timing() Timing { return m.timing }

func (m *Matrix) Period() time.Duration { return m.timing.Period() }
