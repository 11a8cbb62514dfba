// Package config loads and validates the application configuration from
// YAML. Stage settings are never part of this file: those travel with each
// analysis request and are validated by the stage schemas.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
)

// Config is the application configuration.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	NATS       NATSConfig       `yaml:"nats"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// ControllerConfig tunes the process-wide job controller. Workers can only
// reduce the budget below the CPU count; zero means use every CPU.
type ControllerConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// NATSConfig enables the networked job transport. When disabled, jobs run
// in-process.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Controller: ControllerConfig{Workers: 0, QueueSize: 1024},
		NATS:       NATSConfig{Subject: "fiddletunes.jobs"},
		Metrics:    MetricsConfig{Port: 9090, Path: "/metrics"},
		Log:        LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML configuration file, applies defaults for absent fields,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "Load", "reading config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parsing config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no run could accept.
func (c *Config) Validate() error {
	if c.Controller.Workers < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("controller.workers must not be negative, got %d", c.Controller.Workers),
			"Config", "Validate", "controller check")
	}
	if c.Controller.QueueSize < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("controller.queue_size must not be negative, got %d", c.Controller.QueueSize),
			"Config", "Validate", "controller check")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.WrapInvalid(
			fmt.Errorf("nats.url is required when nats.enabled is true"),
			"Config", "Validate", "nats check")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return errors.WrapInvalid(
			fmt.Errorf("metrics.port %d out of range", c.Metrics.Port),
			"Config", "Validate", "metrics check")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level),
			"Config", "Validate", "log check")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("log.format %q is not one of json, text", c.Log.Format),
			"Config", "Validate", "log check")
	}
	return nil
}
