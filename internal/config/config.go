package config

import (
	"fmt"
	"time"
)

// Config is the full runtime configuration. Defaults suit a single-box
// deployment; the command line and BINGOHALL_* environment variables
// override individual fields.
type Config struct {
	Database *DatabaseConfig
	HTTP     *HTTPConfig
	JoinURL  string
	Verbose  bool
}

// DatabaseConfig locates the SQLite file and bounds its pool.
type DatabaseConfig struct {
	Path    string
	Timeout time.Duration
}

// HTTPConfig shapes the listener shared by the API and the websocket
// gateway.
type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path:    "./data/bingohall.db",
			Timeout: 30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		JoinURL: "http://localhost:8080",
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.JoinURL == "" {
		return fmt.Errorf("join URL cannot be empty")
	}
	return nil
}
