package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keysense/core"
	"keysense/hall"
)

func connect(t *testing.T) (*board, *Client) {
	t.Helper()
	b, host := newBoard(t)
	c, err := Connect(host, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return b, c
}

func next(t *testing.T, c *Client, name string) Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case m := <-c.Messages():
			if m.Name == name {
				return m
			}
		case <-timeout:
			t.Fatalf("no %s message", name)
		}
	}
}

func TestClientRetrievesDictionary(t *testing.T) {
	_, c := connect(t)

	d := c.Dictionary()
	require.NotNil(t, d)
	assert.Equal(t, "keysense", d.Version)
	assert.Equal(t, core.GetGlobalDictionary().Generate(), c.RawDictionary())

	f, ok := d.Command("identify")
	require.True(t, ok)
	assert.EqualValues(t, 1, f.ID)
	f, ok = d.Response(0)
	require.True(t, ok)
	assert.Equal(t, "identify_response", f.Name)

	for _, name := range []string{"get_config", "query_sensor", "query_key", "reset_matrix", "set_report"} {
		_, ok := d.Command(name)
		assert.True(t, ok, name)
	}

	mask, ok := d.Constant("REPORT_KEYS")
	require.True(t, ok)
	assert.EqualValues(t, core.ReportKeys, mask)
	assert.Equal(t, "magnet_detected", d.EnumName("calibration_status", int(hall.MagnetDetected)))
}

func TestClientQueryConfig(t *testing.T) {
	_, c := connect(t)

	m, err := c.Query(context.Background(), "get_config", "config")
	require.NoError(t, err)

	r, ok := c.Dictionary().Report(m)
	require.True(t, ok)
	assert.Equal(t, ConfigReport{
		Cols:        2,
		Rows:        2,
		Sensors:     1,
		ScanPeriod:  time.Millisecond,
		SampleCount: 4,
		ReportMask:  uint8(core.ReportAll),
	}, r)
}

func TestClientKeyReports(t *testing.T) {
	b, c := connect(t)

	b.press(0, 1, true)
	b.cycle(1)

	r, ok := c.Dictionary().Report(next(t, c, "key_state"))
	require.True(t, ok)
	key := r.(KeyReport)
	assert.Equal(t, 0, key.Col)
	assert.Equal(t, 1, key.Row)
	assert.True(t, key.Pressed)

	b.press(0, 1, false)
	b.cycle(2)
	r, _ = c.Dictionary().Report(next(t, c, "key_state"))
	assert.False(t, r.(KeyReport).Pressed)
}

func TestClientQueryKey(t *testing.T) {
	b, c := connect(t)

	b.press(1, 0, true)
	b.cycle(2)

	m, err := c.Query(context.Background(), "query_key", "key_state", 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Uint("col"))
	assert.EqualValues(t, 0, m.Uint("row"))
	assert.True(t, m.Bool("pressed"))
}

func TestClientSensorReports(t *testing.T) {
	b, c := connect(t)

	b.setADC(2000)
	b.cycle(4)

	r, ok := c.Dictionary().Report(next(t, c, "sensor_status"))
	require.True(t, ok)
	s := r.(SensorReport)
	assert.Equal(t, 0, s.OID)
	assert.Equal(t, hall.MagnetDetected, s.Status)
	assert.Equal(t, "magnet_detected", s.Name)
	assert.EqualValues(t, 2000, s.Raw)

	b.setADC(2400)
	b.cycle(4)
	r, ok = c.Dictionary().Report(next(t, c, "sense_analysis"))
	require.True(t, ok)
	a := r.(AnalysisReport)
	assert.EqualValues(t, 2400, a.Raw)
	assert.Positive(t, a.Distance)
}

func TestClientQueryInvalidSensor(t *testing.T) {
	_, c := connect(t)

	m, err := c.Query(context.Background(), "query_sensor", "sensor_status", 9)
	require.NoError(t, err)
	r, _ := c.Dictionary().Report(m)
	assert.Equal(t, hall.InvalidIndex, r.(SensorReport).Status)
}

func TestClientSendErrors(t *testing.T) {
	_, c := connect(t)

	assert.ErrorIs(t, c.Send("home_axis"), ErrUnknownMessage)
	assert.ErrorIs(t, c.Send("query_key", 1), ErrArgCount)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	// A key outside the matrix gets no answer
	_, err := c.Query(ctx, "query_key", "key_state", 5, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientSendBeforeDictionary(t *testing.T) {
	_, host := newBoard(t)
	c := NewClient(host, nil)
	defer c.Close()

	assert.ErrorIs(t, c.Send("get_config"), ErrNoDictionary)
}

func TestClientCloseIsIdempotent(t *testing.T) {
	_, c := connect(t)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	_, err := c.Query(context.Background(), "get_config", "config")
	assert.Error(t, err)
}
