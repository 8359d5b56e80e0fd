package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var ErrPublishTimeout = errors.New("monitor: publish timeout")

// Publisher forwards reports somewhere outside the monitor.
type Publisher interface {
	Publish(r Report) error
	Close() error
}

// MQTTPublisher publishes every report as JSON on <prefix>/<topic>.
type MQTTPublisher struct {
	client  mqtt.Client
	cfg     MQTTConfig
	timeout time.Duration
}

// NewMQTTPublisher connects to the broker in cfg.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(client, cfg), nil
}

func newMQTTPublisher(client mqtt.Client, cfg MQTTConfig) *MQTTPublisher {
	return &MQTTPublisher{client: client, cfg: cfg, timeout: cfg.Timeout}
}

func (p *MQTTPublisher) Topic(r Report) string {
	if p.cfg.TopicPrefix == "" {
		return r.Topic()
	}
	return p.cfg.TopicPrefix + "/" + r.Topic()
}

func (p *MQTTPublisher) Publish(r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	topic := p.Topic(r)

	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

// LogPublisher writes reports to a logger. It is used when no broker is
// configured.
type LogPublisher struct {
	Log *zap.SugaredLogger
}

func (p LogPublisher) Publish(r Report) error {
	switch r := r.(type) {
	case KeyReport:
		p.Log.Infow("key", "col", r.Col, "row", r.Row, "pressed", r.Pressed, "idle", r.Idle, "cycles", r.Cycles)
	case SensorReport:
		if r.Status.Fault() {
			p.Log.Warnw("sensor", "oid", r.OID, "status", r.Name, "raw", r.Raw, "min", r.Min, "max", r.Max)
			return nil
		}
		p.Log.Infow("sensor", "oid", r.OID, "status", r.Name, "raw", r.Raw, "min", r.Min, "max", r.Max)
	case AnalysisReport:
		p.Log.Debugw("analysis", "oid", r.OID, "raw", r.Raw, "distance", r.Distance,
			"velocity", r.Velocity, "acceleration", r.Acceleration, "jerk", r.Jerk)
	default:
		p.Log.Infow(r.Topic(), "report", r)
	}
	return nil
}

func (LogPublisher) Close() error { return nil }
