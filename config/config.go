// Package config loads server configuration from an optional YAML file with
// environment overrides. Command-line flags in cmd/server are applied last.
//
//	addr: ":8080"
//	db: tenancy.db
//	region: AUK
//	holidays: holidays.yaml
//	sweep_interval: 1h
//	allowed_origins: [http://localhost:5173]
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Addr           string        `yaml:"addr"`
	DB             string        `yaml:"db"`
	Region         string        `yaml:"region"`   // default for tenants created without one
	Holidays       string        `yaml:"holidays"` // path to a holiday table
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	LogLevel       string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:          ":8080",
		DB:            "tenancy.db",
		SweepInterval: time.Hour,
		LogLevel:      "info",
	}
}

// Load reads path (skipped when empty), then applies TENANCY_* environment
// variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = getenvDefault("TENANCY_ADDR", c.Addr)
	c.DB = getenvDefault("TENANCY_DB", c.DB)
	c.Region = getenvDefault("TENANCY_REGION", c.Region)
	c.Holidays = getenvDefault("TENANCY_HOLIDAYS", c.Holidays)
	c.LogLevel = getenvDefault("TENANCY_LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("TENANCY_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("TENANCY_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TENANCY_SWEEP_INTERVAL: %w", err)
		}
		c.SweepInterval = d
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
