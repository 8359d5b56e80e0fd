package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keysense/hall"
)

func TestReportTopics(t *testing.T) {
	assert.Equal(t, "key/2/5", KeyReport{Col: 2, Row: 5}.Topic())
	assert.Equal(t, "sensor/3/status", SensorReport{OID: 3}.Topic())
	assert.Equal(t, "sensor/3/analysis", AnalysisReport{OID: 3}.Topic())
	assert.Equal(t, "config", ConfigReport{}.Topic())
}

func TestReportFromMessage(t *testing.T) {
	d := parseTestDictionary(t)

	r, ok := d.Report(Message{Name: "sensor_status", Args: map[string]int32{
		"oid": 1, "status": int32(hall.MagnetDetected), "raw": 2100, "min": 2000, "max": 2200, "samples": 9,
	}})
	require.True(t, ok)
	assert.Equal(t, SensorReport{
		OID: 1, Status: hall.MagnetDetected, Name: "magnet_detected",
		Raw: 2100, Min: 2000, Max: 2200, Samples: 9,
	}, r)

	r, ok = d.Report(Message{Name: "sense_analysis", Args: map[string]int32{
		"oid": 0, "raw": 1900, "distance": -4, "velocity": -2, "acceleration": 1, "jerk": 3,
	}})
	require.True(t, ok)
	assert.Equal(t, AnalysisReport{Raw: 1900, Distance: -4, Velocity: -2, Acceleration: 1, Jerk: 3}, r)

	_, ok = d.Report(Message{Name: "identify_response"})
	assert.False(t, ok)
}

func TestStateKeys(t *testing.T) {
	s := NewState()

	assert.True(t, s.Apply(KeyReport{Col: 1, Row: 0, Pressed: true}))
	assert.True(t, s.Apply(KeyReport{Col: 0, Row: 1, Pressed: true}))
	assert.True(t, s.Apply(KeyReport{Col: 0, Row: 0}))
	assert.False(t, s.Apply(KeyReport{Col: 0, Row: 0}), "repeat is not a change")

	pressed := s.Pressed()
	require.Len(t, pressed, 2)
	assert.Equal(t, 0, pressed[0].Col)
	assert.Equal(t, 1, pressed[1].Col)

	k, ok := s.Key(0, 1)
	assert.True(t, ok)
	assert.True(t, k.Pressed)

	s.Clear()
	assert.Empty(t, s.Pressed())
}

func TestStateSensors(t *testing.T) {
	s := NewState()

	s.Apply(SensorReport{OID: 0, Status: hall.MagnetDetected})
	s.Apply(AnalysisReport{OID: 0, Distance: 12})
	s.Apply(SensorReport{OID: 1, Status: hall.SensorMissing})

	status, a, ok := s.Sensor(0)
	require.True(t, ok)
	assert.Equal(t, hall.MagnetDetected, status.Status)
	require.NotNil(t, a)
	assert.EqualValues(t, 12, a.Distance)

	faults := s.Faults()
	require.Len(t, faults, 1)
	assert.Equal(t, 1, faults[0].OID)

	// Losing calibration drops the stale kinematics
	s.Apply(SensorReport{OID: 0, Status: hall.MagnetTooWeak})
	_, a, _ = s.Sensor(0)
	assert.Nil(t, a)

	_, _, ok = s.Sensor(7)
	assert.False(t, ok)
}

func TestStateConfig(t *testing.T) {
	s := NewState()
	_, ok := s.Config()
	assert.False(t, ok)

	c := ConfigReport{Cols: 4, Rows: 4}
	assert.True(t, s.Apply(c))
	assert.False(t, s.Apply(c))
	got, ok := s.Config()
	assert.True(t, ok)
	assert.Equal(t, c, got)
}
