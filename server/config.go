// Package server provides the process-level configuration (C18) and the
// HTTP/websocket status surface (C16) that sit at the edge of the
// optimization core: they boot the process, load a client, and publish the
// last delivered trajectory, but hold no domain logic themselves.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Config is the process-level configuration: listen port, persistence DSN,
// forecast feed endpoint, solver defaults and logging — the same
// JSON-backed shape as the teacher's scheduler config, trimmed to what this
// service actually needs.
type Config struct {
	ListenPort int `json:"listen_port"` // 0 disables the status server

	PostgresDSN string `json:"postgres_dsn"`

	ForecastFeedURL      string        `json:"forecast_feed_url"`
	ForecastPollInterval time.Duration `json:"forecast_poll_interval"`
	UserAgent            string        `json:"user_agent"`
	Latitude             float64       `json:"latitude"`
	Longitude            float64       `json:"longitude"`

	HorizonHours       float64       `json:"horizon_hours"`
	DeltaMinutes       int           `json:"delta_minutes"`
	SolverTimeout      time.Duration `json:"solver_timeout"`
	InitialTemperature float64       `json:"initial_temperature"` // °C assumed for T0 absent live telemetry

	LogLevel  string `json:"log_level"`  // debug, info, warn, error
	LogFormat string `json:"log_format"` // text, json
}

// DefaultConfig returns a configuration with sane defaults: hourly steps
// over a 24h horizon, 60s solver timeout, status server on 8080.
func DefaultConfig() *Config {
	return &Config{
		ListenPort:           8080,
		PostgresDSN:          "",
		ForecastFeedURL:      "",
		ForecastPollInterval: 15 * time.Minute,
		UserAgent:            "wh-mpc/1.0",
		Latitude:             56.9496,
		Longitude:            24.1052,
		HorizonHours:         24,
		DeltaMinutes:         60,
		SolverTimeout:        60 * time.Second,
		InitialTemperature:   40,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader, starting from
// DefaultConfig and overlaying whatever fields the JSON document sets.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	config := DefaultConfig()

	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// SaveConfig saves the configuration to a JSON file.
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	return c.SaveConfigToWriter(file)
}

// SaveConfigToWriter saves the configuration to an io.Writer.
func (c *Config) SaveConfigToWriter(writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config JSON: %w", err)
	}
	return nil
}

// Validate checks the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be between 0 and 65535, got: %d", c.ListenPort)
	}
	if c.HorizonHours <= 0 || c.HorizonHours > 48 {
		return fmt.Errorf("horizon_hours must be in (0, 48], got: %f", c.HorizonHours)
	}
	if c.DeltaMinutes < 5 {
		return fmt.Errorf("delta_minutes must be >= 5, got: %d", c.DeltaMinutes)
	}
	n := c.HorizonHours * 60 / float64(c.DeltaMinutes)
	if n != float64(int(n)) {
		return fmt.Errorf("horizon_hours*60/delta_minutes must be an integer, got: %f", n)
	}
	if c.SolverTimeout <= 0 {
		return fmt.Errorf("solver_timeout must be greater than 0, got: %s", c.SolverTimeout)
	}
	if c.InitialTemperature < 0 || c.InitialTemperature > 100 {
		return fmt.Errorf("initial_temperature must be between 0 and 100, got: %f", c.InitialTemperature)
	}
	if c.ForecastPollInterval <= 0 {
		return fmt.Errorf("forecast_poll_interval must be greater than 0, got: %s", c.ForecastPollInterval)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", c.Longitude)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level: %s, must be one of: debug, info, warn, error", c.LogLevel)
	}
	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log_format: %s, must be one of: text, json", c.LogFormat)
	}

	return nil
}

// MarshalJSON implements custom JSON marshaling so duration fields round-trip
// as human-readable strings (e.g. "15m0s") instead of nanosecond integers.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		*Alias
		ForecastPollInterval string `json:"forecast_poll_interval"`
		SolverTimeout        string `json:"solver_timeout"`
	}{
		Alias:                (*Alias)(c),
		ForecastPollInterval: c.ForecastPollInterval.String(),
		SolverTimeout:        c.SolverTimeout.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for the duration fields.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		*Alias
		ForecastPollInterval string `json:"forecast_poll_interval"`
		SolverTimeout        string `json:"solver_timeout"`
	}{Alias: (*Alias)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if aux.ForecastPollInterval != "" {
		if c.ForecastPollInterval, err = time.ParseDuration(aux.ForecastPollInterval); err != nil {
			return fmt.Errorf("invalid forecast_poll_interval: %w", err)
		}
	}
	if aux.SolverTimeout != "" {
		if c.SolverTimeout, err = time.ParseDuration(aux.SolverTimeout); err != nil {
			return fmt.Errorf("invalid solver_timeout: %w", err)
		}
	}
	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
