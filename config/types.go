// Package config loads bluebeam's process configuration: data/config
// directory locations, logging, metrics, and the stand-in network
// transport used in place of a real Bluetooth stack.
package config

import "time"

// Config is the root configuration structure, loaded from YAML and
// overlaid with BLUEBEAM_-prefixed environment variables.
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Data        DataConfig     `yaml:"data" json:"data"`
	Transport   TransportConfig `yaml:"transport" json:"transport"`
	Session     SessionConfig  `yaml:"session" json:"session"`
	Logging     LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// DataConfig controls where persisted state lives.
type DataConfig struct {
	// Dir overrides the OS data directory (defaults to "<os-data-dir>/bluebeam").
	Dir string `yaml:"dir" json:"dir"`
	// ConfigDir overrides the OS config directory (defaults to "<os-config-dir>/bluebeam").
	ConfigDir string `yaml:"config_dir" json:"config_dir"`
}

// TransportConfig configures the transport/ws stand-in link used by
// cmd/bluebeamd for local pairing demos, in place of a real BLE/SPP radio.
type TransportConfig struct {
	ListenAddr string        `yaml:"listen_addr" json:"listen_addr"`
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// SessionConfig holds session policy knobs loaded from config.
type SessionConfig struct {
	MaxAge      time.Duration `yaml:"max_age" json:"max_age"`
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxMessages int           `yaml:"max_messages" json:"max_messages"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Pretty bool   `yaml:"pretty" json:"pretty"` // pretty-print JSON log lines
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// Defaults returns the configuration used when no file is found and no
// environment overrides are set.
func Defaults() *Config {
	return &Config{
		Environment: "development",
		Data:        DataConfig{},
		Transport: TransportConfig{
			ListenAddr:  "127.0.0.1:17890",
			DialTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			MaxAge:      24 * time.Hour,
			IdleTimeout: 30 * time.Minute,
			MaxMessages: 1_000_000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
			Path:    "/metrics",
		},
	}
}
