package monitor

import (
	"strconv"
	"time"

	"keysense/hall"
)

// Report is a decoded board message with a publishing topic relative to the
// configured prefix.
type Report interface {
	Topic() string
}

type KeyReport struct {
	Col     int    `json:"col"`
	Row     int    `json:"row"`
	Pressed bool   `json:"pressed"`
	Idle    bool   `json:"idle"`
	Cycles  uint32 `json:"cycles"`
}

func (r KeyReport) Topic() string {
	return "key/" + strconv.Itoa(r.Col) + "/" + strconv.Itoa(r.Row)
}

// SensorReport is a calibration status change of one Hall sensor.
type SensorReport struct {
	OID     int                    `json:"oid"`
	Status  hall.CalibrationStatus `json:"-"`
	Name    string                 `json:"status"`
	Raw     uint16                 `json:"raw"`
	Min     uint16                 `json:"min"`
	Max     uint16                 `json:"max"`
	Samples uint32                 `json:"samples"`
}

func (r SensorReport) Topic() string { return "sensor/" + strconv.Itoa(r.OID) + "/status" }

// AnalysisReport carries the kinematics of a detected sensor. Derivatives
// are per averaged sample.
type AnalysisReport struct {
	OID          int    `json:"oid"`
	Raw          uint16 `json:"raw"`
	Distance     int16  `json:"distance"`
	Velocity     int16  `json:"velocity"`
	Acceleration int16  `json:"acceleration"`
	Jerk         int16  `json:"jerk"`
}

func (r AnalysisReport) Topic() string { return "sensor/" + strconv.Itoa(r.OID) + "/analysis" }

type ConfigReport struct {
	Cols        int           `json:"cols"`
	Rows        int           `json:"rows"`
	Sensors     int           `json:"sensors"`
	ScanPeriod  time.Duration `json:"scan_period"`
	SampleCount int           `json:"sample_count"`
	ReportMask  uint8         `json:"report_mask"`
}

func (ConfigReport) Topic() string { return "config" }

type UptimeReport struct {
	Clock    uint32 `json:"clock"`
	Cycles   uint32 `json:"cycles"`
	Overruns uint32 `json:"overruns"`
}

func (UptimeReport) Topic() string { return "uptime" }

// Report converts a message into its typed report. Protocol-level messages
// such as identify_response have none.
func (d *Dictionary) Report(m Message) (Report, bool) {
	switch m.Name {
	case "key_state":
		return KeyReport{
			Col:     int(m.Uint("col")),
			Row:     int(m.Uint("row")),
			Pressed: m.Bool("pressed"),
			Idle:    m.Bool("idle"),
			Cycles:  m.Uint("cycles"),
		}, true
	case "sensor_status":
		status := hall.CalibrationStatus(m.Uint("status"))
		return SensorReport{
			OID:     int(m.Uint("oid")),
			Status:  status,
			Name:    d.EnumName("calibration_status", int(status)),
			Raw:     uint16(m.Uint("raw")),
			Min:     uint16(m.Uint("min")),
			Max:     uint16(m.Uint("max")),
			Samples: m.Uint("samples"),
		}, true
	case "sense_analysis":
		return AnalysisReport{
			OID:          int(m.Uint("oid")),
			Raw:          uint16(m.Uint("raw")),
			Distance:     int16(m.Int("distance")),
			Velocity:     int16(m.Int("velocity")),
			Acceleration: int16(m.Int("acceleration")),
			Jerk:         int16(m.Int("jerk")),
		}, true
	case "config":
		return ConfigReport{
			Cols:        int(m.Uint("cols")),
			Rows:        int(m.Uint("rows")),
			Sensors:     int(m.Uint("sensors")),
			ScanPeriod:  time.Duration(m.Uint("scan_period_us")) * time.Microsecond,
			SampleCount: int(m.Uint("sample_count")),
			ReportMask:  uint8(m.Uint("report_mask")),
		}, true
	case "uptime":
		return UptimeReport{
			Clock:    m.Uint("clock"),
			Cycles:   m.Uint("cycles"),
			Overruns: m.Uint("overruns"),
		}, true
	}
	return nil, false
}
