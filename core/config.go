package core

import (
	"errors"

	"keysense/hall"
	"keysense/matrix"
)

// Config describes one board: matrix pins and timing plus the Hall sensor
// group. It is built into the firmware per target, or loaded from JSON on
// host rigs.
type Config struct {
	Name string `json:"name"`

	Cols         []GPIOPin `json:"cols"`
	Rows         []GPIOPin `json:"rows"`
	ScanPeriodUS uint32    `json:"scan_period_us"`
	DebounceUS   uint32    `json:"debounce_us"`
	IdleMS       uint32    `json:"idle_ms"`

	HallChannels []ADCChannelID `json:"hall_channels"`
	Hall         HallConfig     `json:"hall"`

	ReportMask ReportMask `json:"report_mask"`
}

// HallConfig holds the thresholds shared by every sensor of the group, in
// raw ADC units.
type HallConfig struct {
	SampleCount uint8  `json:"sample_count"`
	MinMagnet   uint16 `json:"min_magnet"`
	MaxSensor   uint16 `json:"max_sensor"`
	MinOK       uint16 `json:"min_ok"`
	MaxOK       uint16 `json:"max_ok"`
	NoSensor    uint16 `json:"no_sensor"`

	// LookupSize and LookupScale build the bring-up linearization table
	// when no measured table is supplied.
	LookupSize  int `json:"lookup_size"`
	LookupScale int `json:"lookup_scale"`
}

var (
	ErrNoPins            = errors.New("config: matrix needs both cols and rows")
	ErrScanPeriod        = errors.New("config: scan period must be non-zero")
	ErrLookupTooSmall    = errors.New("config: lookup table does not cover every usable sample")
	ErrDuplicateChannels = errors.New("config: hall channel used twice")
	ErrPartialHall       = errors.New("config: min_magnet, min_ok and no_sensor must be set together")
)

// DefaultConfig returns the reference board: a 4x4 matrix and four Hall
// sensors on a 12-bit ADC.
func DefaultConfig() *Config {
	return &Config{
		Name:         "keysense-ref",
		Cols:         []GPIOPin{2, 3, 4, 5},
		Rows:         []GPIOPin{6, 7, 8, 9},
		ScanPeriodUS: 1000,
		DebounceUS:   5000,
		IdleMS:       500,
		HallChannels: []ADCChannelID{0, 1, 2, 3},
		Hall: HallConfig{
			SampleCount: 4,
			MinMagnet:   1200,
			MaxSensor:   4095,
			MinOK:       1500,
			MaxOK:       3000,
			NoSensor:    200,
			LookupSize:  4096,
			LookupScale: 8,
		},
		ReportMask: ReportKeys | ReportStatus,
	}
}

// applyDefaults fills zero fields with the reference values. The lower
// thresholds are only defaulted as a group. ReportMask is left alone so an
// explicit zero survives; LoadConfig seeds it before decoding.
func applyDefaults(c *Config) {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.ScanPeriodUS == 0 {
		c.ScanPeriodUS = d.ScanPeriodUS
	}
	if c.DebounceUS == 0 {
		c.DebounceUS = d.DebounceUS
	}
	if c.IdleMS == 0 {
		c.IdleMS = d.IdleMS
	}
	if len(c.HallChannels) > 0 {
		h := &c.Hall
		if h.SampleCount == 0 {
			h.SampleCount = d.Hall.SampleCount
		}
		if h.MaxSensor == 0 {
			h.MaxSensor = d.Hall.MaxSensor
		}
		if h.MaxOK == 0 {
			h.MaxOK = d.Hall.MaxOK
		}
		if h.MinMagnet == 0 && h.MinOK == 0 && h.NoSensor == 0 {
			h.MinMagnet = d.Hall.MinMagnet
			h.MinOK = d.Hall.MinOK
			h.NoSensor = d.Hall.NoSensor
		}
		if h.LookupSize == 0 {
			h.LookupSize = h.maxSample() + 1
		}
		if h.LookupScale == 0 {
			h.LookupScale = d.Hall.LookupScale
		}
	}
}

// maxSample is the largest averaged sample that reaches the lookup table:
// MaxOK in calibration mode, just under MaxSensor once detected.
func (h *HallConfig) maxSample() int {
	if h.MaxOK > h.MaxSensor {
		return int(h.MaxOK)
	}
	return int(h.MaxSensor)
}

// Thresholds converts the Hall section into the engine's thresholds.
func (h *HallConfig) Thresholds() *hall.Thresholds {
	return &hall.Thresholds{
		SampleCount: h.SampleCount,
		MinMagnet:   h.MinMagnet,
		MaxSensor:   h.MaxSensor,
		MinOK:       h.MinOK,
		MaxOK:       h.MaxOK,
		NoSensor:    h.NoSensor,
	}
}

// Timing returns the matrix timing.
func (c *Config) Timing() matrix.Timing {
	return matrix.Timing{
		ScanPeriodUS: c.ScanPeriodUS,
		DebounceUS:   c.DebounceUS,
		IdleMS:       c.IdleMS,
	}
}

// Validate checks c for configurations the engines cannot run.
func (c *Config) Validate() error {
	if (len(c.Cols) == 0) != (len(c.Rows) == 0) {
		return ErrNoPins
	}
	if err := checkMatrixSize(len(c.Cols), len(c.Rows)); err != nil {
		return err
	}
	if c.ScanPeriodUS == 0 {
		return ErrScanPeriod
	}
	if len(c.HallChannels) == 0 {
		return nil
	}
	if len(c.HallChannels) > hall.MaxSensors {
		return &hall.FailedToResizeError{Size: len(c.HallChannels)}
	}
	seen := make(map[ADCChannelID]bool, len(c.HallChannels))
	for _, ch := range c.HallChannels {
		if seen[ch] {
			return ErrDuplicateChannels
		}
		seen[ch] = true
	}
	h := &c.Hall
	if h.LookupSize <= h.maxSample() {
		return ErrLookupTooSmall
	}
	set := 0
	for _, v := range []uint16{h.MinMagnet, h.MinOK, h.NoSensor} {
		if v != 0 {
			set++
		}
	}
	if set != 0 && set != 3 {
		return ErrPartialHall
	}
	return h.Thresholds().Validate()
}

// BuildScanner constructs the matrix, sensor group and scanner described by
// c on the registered HAL drivers. A nil lookup selects the bring-up table.
func BuildScanner(c *Config, lookup hall.Lookup, r Reporter) (*Scanner, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var cols []matrix.StrobePin
	var rows []matrix.SensePin
	if len(c.Cols) > 0 {
		var err error
		if cols, rows, err = ConfigureMatrixPins(c.Cols, c.Rows); err != nil {
			return nil, err
		}
	}
	return BuildScannerWithPins(c, cols, rows, lookup, r)
}

// BuildScannerWithPins is BuildScanner for matrix pins the caller already
// configured, such as an I/O expander. c.Cols and c.Rows are not used to
// build the matrix.
func BuildScannerWithPins(c *Config, cols []matrix.StrobePin, rows []matrix.SensePin, lookup hall.Lookup, r Reporter) (*Scanner, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var m *matrix.Matrix
	if len(cols) > 0 || len(rows) > 0 {
		var err error
		if m, err = matrix.New(cols, rows, c.Timing()); err != nil {
			return nil, err
		}
	}

	var sensors *hall.Sensors
	if len(c.HallChannels) > 0 {
		if lookup == nil {
			lookup = hall.LinearTable(c.Hall.LookupSize, c.Hall.LookupScale)
		}
		if t, ok := lookup.(hall.Table); ok && len(t) <= c.Hall.maxSample() {
			return nil, ErrLookupTooSmall
		}
		var err error
		if sensors, err = hall.New(len(c.HallChannels), c.Hall.Thresholds(), lookup); err != nil {
			return nil, err
		}
	}

	s, err := NewScanner(m, sensors, c.HallChannels, r)
	if err != nil {
		return nil, err
	}
	s.SetReportMask(c.ReportMask)
	return s, nil
}
