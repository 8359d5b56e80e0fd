package core

import (
	"keysense/hall"
	"keysense/matrix"
	"keysense/protocol"
)

// Calibration status names in wire order, for the dictionary enumeration.
var calibrationStatusNames = []string{
	hall.NotReady.String(),
	hall.SensorMissing.String(),
	hall.SensorBroken.String(),
	hall.MagnetDetected.String(),
	hall.MagnetWrongPoleOrMissing.String(),
	hall.MagnetTooStrong.String(),
	hall.MagnetTooWeak.String(),
	hall.InvalidIndex.String(),
}

// InitScanCommands registers the scan queries, controls and reports for s.
func InitScanCommands(s *Scanner) {
	RegisterCommand("get_config", "", func(data *[]byte) error {
		sendConfig(s)
		return nil
	})
	RegisterCommand("query_sensor", "oid=%c", func(data *[]byte) error {
		oid, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		querySensor(s, int(oid))
		return nil
	})
	RegisterCommand("query_key", "col=%c row=%c", func(data *[]byte) error {
		col, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		row, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		queryKey(s, int(col), int(row))
		return nil
	})
	RegisterCommand("reset_matrix", "", func(data *[]byte) error {
		return s.Reset()
	})
	RegisterCommand("set_report", "mask=%c", func(data *[]byte) error {
		mask, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		s.SetReportMask(ReportMask(mask) & ReportAll)
		return nil
	})

	RegisterResponse("config", "cols=%c rows=%c sensors=%c scan_period_us=%u sample_count=%c report_mask=%c")
	RegisterResponse("key_state", "col=%c row=%c pressed=%c idle=%c cycles=%u")
	RegisterResponse("sensor_status", "oid=%c status=%c raw=%hu min=%hu max=%hu samples=%u")
	RegisterResponse("sense_analysis", "oid=%c raw=%hu distance=%hi velocity=%hi acceleration=%hi jerk=%hi")

	RegisterEnumeration("calibration_status", calibrationStatusNames)
	RegisterConstant("REPORT_KEYS", uint32(ReportKeys))
	RegisterConstant("REPORT_STATUS", uint32(ReportStatus))
	RegisterConstant("REPORT_ANALYSIS", uint32(ReportAnalysis))
	if s.sensors != nil {
		RegisterConstant("HALL_SAMPLE_COUNT", uint32(s.sensors.Thresholds().SampleCount))
	}
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func sendConfig(s *Scanner) {
	var cols, rows, sensors, period, sc uint32
	if m := s.matrix; m != nil {
		cols, rows = uint32(m.Cols()), uint32(m.Rows())
		period = m.Timing().ScanPeriodUS
	}
	if s.sensors != nil {
		sensors = uint32(s.sensors.Len())
		sc = uint32(s.sensors.Thresholds().SampleCount)
	}
	mask := uint32(s.mask)
	SendResponse("config", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, cols)
		protocol.EncodeVLQUint(output, rows)
		protocol.EncodeVLQUint(output, sensors)
		protocol.EncodeVLQUint(output, period)
		protocol.EncodeVLQUint(output, sc)
		protocol.EncodeVLQUint(output, mask)
	})
}

func querySensor(s *Scanner, oid int) {
	if s.sensors == nil || oid < 0 || oid >= s.sensors.Len() {
		sendSensorStatus(oid, hall.InvalidIndex, nil)
		return
	}
	d, err := s.sensors.Data(oid)
	if err != nil {
		// Never classified yet
		sendSensorStatus(oid, hall.NotReady, nil)
		return
	}
	sendSensorStatus(oid, d.Cal, d)
	if d.Cal == hall.MagnetDetected {
		sendAnalysis(oid, &d.Analysis)
	}
}

func queryKey(s *Scanner, col, row int) {
	if s.matrix == nil {
		return
	}
	k := s.matrix.Key(col, row)
	if k == nil {
		return
	}
	sendKeyState(col, row, matrix.KeyEvent{State: k.State(), Idle: k.Idle(), Cycles: k.Cycles()})
}

func sendKeyState(col, row int, ev matrix.KeyEvent) {
	SendResponse("key_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(col))
		protocol.EncodeVLQUint(output, uint32(row))
		protocol.EncodeVLQUint(output, boolArg(ev.Pressed()))
		protocol.EncodeVLQUint(output, boolArg(ev.Idle))
		protocol.EncodeVLQUint(output, ev.Cycles)
	})
}

// sendSensorStatus reports d's stats when d is not nil.
func sendSensorStatus(oid int, status hall.CalibrationStatus, d *hall.SenseData) {
	var raw, lo, hi uint16
	var samples uint32
	if d != nil {
		raw = d.Analysis.Raw
		lo, hi = d.Stats.Min, d.Stats.Max
		samples = d.Stats.Samples
	}
	SendResponse("sensor_status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, uint32(status))
		protocol.EncodeVLQUint(output, uint32(raw))
		protocol.EncodeVLQUint(output, uint32(lo))
		protocol.EncodeVLQUint(output, uint32(hi))
		protocol.EncodeVLQUint(output, samples)
	})
}

func sendAnalysis(oid int, a *hall.Analysis) {
	v := *a
	SendResponse("sense_analysis", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, uint32(v.Raw))
		protocol.EncodeVLQInt(output, int32(v.Distance))
		protocol.EncodeVLQInt(output, int32(v.Velocity))
		protocol.EncodeVLQInt(output, int32(v.Acceleration))
		protocol.EncodeVLQInt(output, int32(v.Jerk))
	})
}

// TransportReporter forwards scanner changes to the host as responses.
type TransportReporter struct{}

func (TransportReporter) KeyChanged(col, row int, ev matrix.KeyEvent) {
	sendKeyState(col, row, ev)
}

func (TransportReporter) SensorStatusChanged(index int, old hall.CalibrationStatus, d *hall.SenseData) {
	sendSensorStatus(index, d.Cal, d)
}

func (TransportReporter) AnalysisChanged(index int, a *hall.Analysis) {
	sendAnalysis(index, a)
}
