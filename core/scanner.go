package core

import (
	"errors"
	"sync/atomic"

	"keysense/hall"
	"keysense/matrix"
)

// Matrix size limits. The pressed-row bitmap recorded per sensed column is
// 32 bits, and cell indices are one byte in the timing ring, the same bound
// hall.MaxSensors puts on sensors.
const (
	MaxRows  = 32
	MaxCells = 256
)

var (
	ErrNothingToScan  = errors.New("scanner: no matrix and no hall sensors")
	ErrMatrixTooLarge = errors.New("scanner: matrix exceeds 32 rows or 256 cells")
	ErrChannelCount   = errors.New("scanner: one ADC channel is needed per sensor")
)

func checkMatrixSize(cols, rows int) error {
	if rows > MaxRows || cols*rows > MaxCells {
		return ErrMatrixTooLarge
	}
	return nil
}

// Reporter receives the changes a scan cycle observes. Calls happen inside
// Cycle and must not block.
type Reporter interface {
	KeyChanged(col, row int, ev matrix.KeyEvent)
	SensorStatusChanged(index int, old hall.CalibrationStatus, d *hall.SenseData)
	AnalysisChanged(index int, a *hall.Analysis)
}

// ReportMask selects which changes are forwarded to the Reporter.
type ReportMask uint8

const (
	ReportKeys ReportMask = 1 << iota
	ReportStatus
	ReportAnalysis

	ReportAll = ReportKeys | ReportStatus | ReportAnalysis
)

// Scanner runs the per-cycle pipeline over one matrix and one Hall sensor
// group. Either may be nil on boards that only have the other.
//
// Each Cycle samples every Hall channel once, senses the column strobed by
// the previous cycle and strobes the next one, so the column settles for a
// whole period before it is read.
type Scanner struct {
	matrix   *matrix.Matrix
	sensors  *hall.Sensors
	adc      ADCDriver
	channels []ADCChannelID
	reporter Reporter
	mask     ReportMask

	keys     []matrix.State // last reported state per cell
	status   []hall.CalibrationStatus
	distance []int16
	started  bool
}

// NewScanner wires a scanner. channels[i] feeds sensor i; the ADC driver
// registered with SetADCDriver is used when channels is not empty.
func NewScanner(m *matrix.Matrix, sensors *hall.Sensors, channels []ADCChannelID, r Reporter) (*Scanner, error) {
	if m == nil && sensors == nil {
		return nil, ErrNothingToScan
	}
	s := &Scanner{
		matrix:   m,
		sensors:  sensors,
		channels: channels,
		reporter: r,
		mask:     ReportAll,
	}
	if m != nil {
		if err := checkMatrixSize(m.Cols(), m.Rows()); err != nil {
			return nil, err
		}
		s.keys = make([]matrix.State, m.Cols()*m.Rows())
	}
	if sensors != nil {
		if len(channels) != sensors.Len() {
			return nil, ErrChannelCount
		}
		s.adc = MustADC()
		for _, ch := range channels {
			if err := s.adc.ConfigureChannel(ch); err != nil {
				return nil, err
			}
		}
		s.status = make([]hall.CalibrationStatus, sensors.Len())
		s.distance = make([]int16, sensors.Len())
	}
	return s, nil
}

// Start strobes the first column. Cycle calls it when needed.
func (s *Scanner) Start() error {
	if s.matrix != nil {
		col, err := s.matrix.NextStrobe()
		if err != nil {
			return err
		}
		RecordTiming(EvtStrobe, uint8(col), GetTime(), uint32(col), 0)
	}
	s.started = true
	return nil
}

// Cycle runs one bounded scan cycle. Hardware errors abort the cycle and
// are returned unchanged; the next Cycle starts over from the same state.
func (s *Scanner) Cycle() error {
	if !s.started {
		if err := s.Start(); err != nil {
			return err
		}
	}

	if s.sensors != nil {
		if err := s.sampleHall(); err != nil {
			return err
		}
	}

	if s.matrix != nil {
		if err := s.scanColumn(); err != nil {
			return err
		}
	}

	atomic.AddUint32(&scanCycles, 1)
	return nil
}

func (s *Scanner) sampleHall() error {
	for i, ch := range s.channels {
		raw, err := s.adc.ReadRaw(ch)
		if err != nil {
			return err
		}

		a, err := s.sensors.Add(i, uint16(raw))
		if err != nil {
			var calErr *hall.CalibrationError
			if !errors.As(err, &calErr) {
				return err
			}
			s.statusChanged(i, &calErr.Data)
			continue
		}
		if a == nil {
			continue
		}
		if s.status[i] != hall.MagnetDetected {
			d, _ := s.sensors.Data(i)
			s.statusChanged(i, d)
		}
		if a.Distance != s.distance[i] {
			s.distance[i] = a.Distance
			RecordTiming(EvtAnalysis, uint8(i), GetTime(), uint32(a.Raw), uint32(uint16(a.Distance)))
			if s.reporter != nil && s.mask&ReportAnalysis != 0 {
				s.reporter.AnalysisChanged(i, a)
			}
		}
	}
	return nil
}

// statusChanged records d.Cal as the status of sensor i and reports it when
// it differs from the last one seen.
func (s *Scanner) statusChanged(i int, d *hall.SenseData) {
	old, cur := s.status[i], d.Cal
	if old == cur {
		return
	}
	s.status[i] = cur
	if cur != hall.MagnetDetected {
		s.distance[i] = 0
	}
	RecordTiming(EvtCalibration, uint8(i), GetTime(), uint32(old), uint32(cur))
	if s.reporter != nil && s.mask&ReportStatus != 0 {
		s.reporter.SensorStatusChanged(i, old, d)
	}
}

func (s *Scanner) scanColumn() error {
	col := s.matrix.Strobe()
	events, err := s.matrix.Sense()
	if err != nil {
		return err
	}

	now := GetTime()
	var pressed uint32
	for row, ev := range events {
		if ev.Pressed() {
			pressed |= 1 << uint(row)
		}
		idx := s.matrix.Index(col, row)
		if ev.State == s.keys[idx] {
			continue
		}
		s.keys[idx] = ev.State
		RecordTiming(EvtKeyChange, uint8(idx), now, uint32(ev.State), ev.Cycles)
		if s.reporter != nil && s.mask&ReportKeys != 0 {
			s.reporter.KeyChanged(col, row, ev)
		}
	}
	RecordTiming(EvtSense, uint8(col), now, pressed, 0)

	next, err := s.matrix.NextStrobe()
	if err != nil {
		return err
	}
	RecordTiming(EvtStrobe, uint8(next), now, uint32(next), 0)
	return nil
}

// ScanTimer returns a timer that runs Cycle every period ticks starting at
// start. Cycles that finish past their next deadline are counted as overruns
// and the schedule skips ahead rather than bursting to catch up.
func (s *Scanner) ScanTimer(start, period uint32, onError func(error)) *Timer {
	return &Timer{
		WakeTime: start,
		Handler: func(t *Timer) uint8 {
			if err := s.Cycle(); err != nil && onError != nil {
				onError(err)
			}
			now := GetTime()
			t.WakeTime += period
			if !timerBefore(now, t.WakeTime) {
				atomic.AddUint32(&scanOverruns, 1)
				RecordTiming(EvtOverrun, 0, now, now-(t.WakeTime-period), 0)
				t.WakeTime = now + period
			}
			return SF_RESCHEDULE
		},
	}
}

// Reset clears the debounce grid, recalibrates every sensor and strobes the
// first column again on the next Cycle.
func (s *Scanner) Reset() error {
	if s.matrix != nil {
		if err := s.matrix.Reset(); err != nil {
			return err
		}
		for i := range s.keys {
			s.keys[i] = matrix.Off
		}
	}
	if s.sensors != nil {
		s.sensors.Reset()
		for i := range s.status {
			s.status[i] = hall.NotReady
			s.distance[i] = 0
		}
	}
	s.started = false
	return nil
}

func (s *Scanner) SetReportMask(m ReportMask) { s.mask = m }
func (s *Scanner) ReportMask() ReportMask     { return s.mask }
func (s *Scanner) Matrix() *matrix.Matrix     { return s.matrix }
func (s *Scanner) Sensors() *hall.Sensors     { return s.sensors }
