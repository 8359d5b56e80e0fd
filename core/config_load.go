//go:build !tinygo

package core

import "encoding/json"

// LoadConfig parses a JSON board configuration and fills in defaults.
func LoadConfig(jsonData []byte) (*Config, error) {
	// A report_mask absent from the JSON keeps the default; an explicit 0 is kept.
	config := Config{ReportMask: DefaultConfig().ReportMask}
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}
	applyDefaults(&config)
	return &config, nil
}
