package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bep/debounce"
	"go.uber.org/zap"
)

// Monitor feeds decoded reports from a Client into a State and a Publisher.
type Monitor struct {
	client *Client
	state  *State
	pub    Publisher
	cfg    *Config
	log    *zap.SugaredLogger
	clock  clock.Clock

	mu       sync.Mutex
	deferred map[int]func(func())
}

func New(client *Client, pub Publisher, cfg *Config, log *zap.SugaredLogger) *Monitor {
	if cfg == nil {
		cfg = Default()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if pub == nil {
		pub = LogPublisher{Log: log}
	}
	return &Monitor{
		client:   client,
		state:    NewState(),
		pub:      pub,
		cfg:      cfg,
		log:      log,
		clock:    clock.New(),
		deferred: make(map[int]func(func())),
	}
}

func (m *Monitor) State() *State { return m.state }

// SetClock replaces the clock that paces uptime polling.
func (m *Monitor) SetClock(c clock.Clock) { m.clock = c }

// Setup applies the configured board options and records the board's
// configuration.
func (m *Monitor) Setup(ctx context.Context) error {
	if m.cfg.Debug {
		if err := m.client.Send("set_debug", 1); err != nil {
			return err
		}
	}
	if m.cfg.ReportMask != 0 {
		if err := m.client.Send("set_report", uint32(m.cfg.ReportMask)); err != nil {
			return err
		}
	}

	msg, err := m.client.Query(ctx, "get_config", "config")
	if err != nil {
		return err
	}
	m.Handle(msg)
	if c, ok := m.state.Config(); ok {
		m.log.Infow("board config",
			"cols", c.Cols, "rows", c.Rows, "sensors", c.Sensors,
			"scan_period", c.ScanPeriod, "sample_count", c.SampleCount)
	}
	return nil
}

// Refresh queries the current state of every sensor.
func (m *Monitor) Refresh(ctx context.Context) error {
	c, ok := m.state.Config()
	if !ok {
		return nil
	}
	for oid := 0; oid < c.Sensors; oid++ {
		msg, err := m.client.Query(ctx, "query_sensor", "sensor_status", uint32(oid))
		if err != nil {
			return err
		}
		m.Handle(msg)
	}
	return nil
}

// Run handles messages until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if m.cfg.PollInterval > 0 {
		t := m.clock.Ticker(m.cfg.PollInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-m.client.Messages():
			m.Handle(msg)
		case <-tick:
			qctx, cancel := context.WithTimeout(ctx, time.Second)
			msg, err := m.client.Query(qctx, "get_uptime", "uptime")
			cancel()
			if err != nil {
				m.log.Warnw("uptime query failed", "error", err)
				continue
			}
			m.Handle(msg)
		}
	}
}

// Handle records and publishes one message. Messages without a report
// type are logged at debug level.
func (m *Monitor) Handle(msg Message) {
	r, ok := m.client.Dictionary().Report(msg)
	if !ok {
		m.log.Debugw("message", "name", msg.Name, "args", msg.Args)
		return
	}
	if !m.state.Apply(r) {
		return
	}
	if a, ok := r.(AnalysisReport); ok && m.cfg.AnalysisDelay > 0 {
		m.debouncer(a.OID)(func() { m.publish(a) })
		return
	}
	m.publish(r)
}

func (m *Monitor) publish(r Report) {
	if err := m.pub.Publish(r); err != nil {
		m.log.Warnw("publish failed", "topic", r.Topic(), "error", err)
	}
}

// debouncer returns the per-sensor analysis debouncer. The last report
// queued wins.
func (m *Monitor) debouncer(oid int) func(func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deferred[oid]
	if !ok {
		d = debounce.New(m.cfg.AnalysisDelay)
		m.deferred[oid] = d
	}
	return d
}
