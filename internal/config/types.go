package config

import (
	"strings"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .statwatch.yaml configuration file.
type Config struct {
	Version int           `yaml:"version" mapstructure:"version" validate:"gte=0"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Stream  StreamConfig  `yaml:"stream" mapstructure:"stream"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor"`
}

// ServerConfig locates the telemetry backend.
type ServerConfig struct {
	// URL is the backend base address. http(s) and ws(s) schemes are accepted.
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`

	// APIURL is the base for the process and info endpoints when they are
	// served separately. Empty means URL.
	APIURL string `yaml:"api_url" mapstructure:"api_url" validate:"omitempty,url"`
}

// StreamConfig controls the STOMP subscription.
type StreamConfig struct {
	Endpoint         string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required,startswith=/"`
	Topic            string        `yaml:"topic" mapstructure:"topic" validate:"required,startswith=/"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay" validate:"gt=0"`
	Heartbeat        time.Duration `yaml:"heartbeat" mapstructure:"heartbeat" validate:"gt=0"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout" validate:"gt=0"`
}

// ExportConfig controls where CSV exports are written.
type ExportConfig struct {
	// Dir supports ~, ${HOME} and ${USER}.
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level: "debug", "info", "warn" or "error".
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`

	// File enables rotating file output. Empty logs to stderr.
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days" validate:"gte=0"`
}

// MonitorConfig controls the terminal dashboard.
type MonitorConfig struct {
	// Refresh is how often the dashboard redraws when no frames arrive.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh" validate:"gt=0"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Server: ServerConfig{
			URL: "http://localhost:8080",
		},
		Stream: StreamConfig{
			Endpoint:         "/ws/websocket",
			Topic:            "/topic/stats",
			ReconnectDelay:   3 * time.Second,
			Heartbeat:        4 * time.Second,
			HandshakeTimeout: 5 * time.Second,
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Monitor: MonitorConfig{
			Refresh: time.Second,
		},
	}
}

// APIBase returns the base URL for the request/response endpoints. A ws(s)
// server URL maps to the matching http(s) address.
func (c *Config) APIBase() string {
	if c.Server.APIURL != "" {
		return c.Server.APIURL
	}
	switch {
	case strings.HasPrefix(c.Server.URL, "ws://"):
		return "http://" + strings.TrimPrefix(c.Server.URL, "ws://")
	case strings.HasPrefix(c.Server.URL, "wss://"):
		return "https://" + strings.TrimPrefix(c.Server.URL, "wss://")
	default:
		return c.Server.URL
	}
}
