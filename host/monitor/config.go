package monitor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"keysense/host/serial"
)

// Config is the monitor's YAML configuration.
type Config struct {
	Serial serial.Config `yaml:"serial"`
	MQTT   MQTTConfig    `yaml:"mqtt"`

	// ReportMask is sent with set_report after connecting. Zero keeps the
	// board's own mask.
	ReportMask uint8 `yaml:"report_mask"`

	// PollInterval paces get_uptime queries. Zero disables polling.
	PollInterval time.Duration `yaml:"poll_interval"`

	// AnalysisDelay holds back analysis reports until a sensor has been
	// quiet this long, then publishes the latest one. Zero publishes every
	// report.
	AnalysisDelay time.Duration `yaml:"analysis_delay"`

	// Debug enables the board's debug output on connect.
	Debug bool `yaml:"debug"`
}

// MQTTConfig selects the broker reports are published to. An empty Broker
// disables MQTT.
type MQTTConfig struct {
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TopicPrefix string        `yaml:"topic_prefix"`
	QoS         byte          `yaml:"qos"`
	Retain      bool          `yaml:"retain"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: *serial.DefaultConfig("/dev/ttyACM0"),
		MQTT: MQTTConfig{
			ClientID:    "keysense-monitor",
			TopicPrefix: "keysense",
			Retain:      true,
			Timeout:     5 * time.Second,
		},
		PollInterval:  10 * time.Second,
		AnalysisDelay: 20 * time.Millisecond,
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ensureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) ensureDefaults() {
	def := Default()
	if c.Serial.Device == "" {
		c.Serial.Device = def.Serial.Device
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Timeout == 0 {
		c.MQTT.Timeout = def.MQTT.Timeout
	}
}

func (c *Config) Validate() error {
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos: %d is not 0, 1 or 2", c.MQTT.QoS)
	}
	if c.PollInterval < 0 {
		return errors.New("poll_interval: must not be negative")
	}
	if c.AnalysisDelay < 0 {
		return errors.New("analysis_delay: must not be negative")
	}
	if c.Serial.ReadTimeout < 0 {
		return errors.New("serial.read_timeout: must not be negative")
	}
	return nil
}
