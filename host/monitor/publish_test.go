package monitor

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"keysense/hall"
)

type fakeToken struct {
	done    chan struct{}
	err     error
	pending bool
}

func newToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// fakeMQTT records publishes. Methods it does not override panic through
// the nil embedded interface.
type fakeMQTT struct {
	mqtt.Client
	published    []published
	token        *fakeToken
	disconnected bool
}

func (c *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return newToken(nil)
}

func (c *fakeMQTT) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublisher(t *testing.T) {
	client := &fakeMQTT{}
	p := newMQTTPublisher(client, MQTTConfig{TopicPrefix: "kbd", QoS: 1, Retain: true, Timeout: time.Second})

	require.NoError(t, p.Publish(KeyReport{Col: 1, Row: 2, Pressed: true, Cycles: 7}))
	require.Len(t, client.published, 1)

	got := client.published[0]
	assert.Equal(t, "kbd/key/1/2", got.topic)
	assert.EqualValues(t, 1, got.qos)
	assert.True(t, got.retain)

	var k KeyReport
	require.NoError(t, json.Unmarshal(got.payload, &k))
	assert.Equal(t, KeyReport{Col: 1, Row: 2, Pressed: true, Cycles: 7}, k)

	require.NoError(t, p.Close())
	assert.True(t, client.disconnected)
}

func TestMQTTPublisherSensorPayload(t *testing.T) {
	client := &fakeMQTT{}
	p := newMQTTPublisher(client, MQTTConfig{Timeout: time.Second})

	require.NoError(t, p.Publish(SensorReport{OID: 2, Status: hall.SensorBroken, Name: "sensor_broken", Raw: 4095}))
	assert.Equal(t, "sensor/2/status", client.published[0].topic)
	assert.JSONEq(t,
		`{"oid":2,"status":"sensor_broken","raw":4095,"min":0,"max":0,"samples":0}`,
		string(client.published[0].payload))
}

func TestMQTTPublisherErrors(t *testing.T) {
	client := &fakeMQTT{token: &fakeToken{done: make(chan struct{}), pending: true}}
	p := newMQTTPublisher(client, MQTTConfig{Timeout: time.Millisecond})
	assert.ErrorIs(t, p.Publish(UptimeReport{}), ErrPublishTimeout)

	refused := errors.New("not authorized")
	client.token = newToken(refused)
	assert.ErrorIs(t, p.Publish(UptimeReport{}), refused)
}

func TestLogPublisher(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	p := LogPublisher{Log: zap.New(obs).Sugar()}

	require.NoError(t, p.Publish(KeyReport{Col: 0, Row: 3, Pressed: true}))
	require.NoError(t, p.Publish(SensorReport{OID: 1, Status: hall.SensorMissing, Name: "sensor_missing"}))
	require.NoError(t, p.Publish(AnalysisReport{OID: 1, Distance: 5}))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "key", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.DebugLevel, entries[2].Level)
	assert.EqualValues(t, 3, entries[0].ContextMap()["row"])
}
