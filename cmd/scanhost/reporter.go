package main

import (
	"time"

	"go.uber.org/zap"

	"keysense/core"
	"keysense/hall"
	"keysense/matrix"
)

// logReporter logs every scanner change.
type logReporter struct {
	log    *zap.SugaredLogger
	period time.Duration
}

var _ core.Reporter = logReporter{}

func (r logReporter) KeyChanged(col, row int, ev matrix.KeyEvent) {
	r.log.Infow("key",
		"col", col,
		"row", row,
		"pressed", ev.Pressed(),
		"idle", ev.Idle,
		"after", ev.Elapsed(r.period))
}

func (r logReporter) SensorStatusChanged(index int, old hall.CalibrationStatus, d *hall.SenseData) {
	fields := []interface{}{
		"sensor", index,
		"from", old.String(),
		"to", d.Cal.String(),
		"raw", d.Analysis.Raw,
		"min", d.Stats.Min,
		"max", d.Stats.Max,
	}
	if d.Cal.Fault() {
		r.log.Warnw("sensor fault", fields...)
		return
	}
	r.log.Infow("sensor status", fields...)
}

func (r logReporter) AnalysisChanged(index int, a *hall.Analysis) {
	r.log.Debugw("analysis",
		"sensor", index,
		"raw", a.Raw,
		"distance", a.Distance,
		"velocity", a.Velocity,
		"acceleration", a.Acceleration,
		"jerk", a.Jerk)
}
