// Package config loads the release service configuration file.
package config

import (
	"os"
	"strings"
)

// DefaultPath is read when --config is not given.
const DefaultPath = "releases.yaml"

// Environment overrides applied after the file is decoded.
const (
	EnvStoragePath = "RELEASES_STORAGE_PATH"
	EnvLogLevel    = "RELEASES_LOG_LEVEL"
)

// Config is the root configuration document.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Schemas   SchemasConfig   `yaml:"schemas"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// StorageConfig locates the JSON database file.
type StorageConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// SchemasConfig locates the content-type schema file.
type SchemasConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json zerolog"`
}

// SchedulerConfig toggles the in-process scheduler.
type SchedulerConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// DefaultsConfig seeds the settings record on first start.
type DefaultsConfig struct {
	Timezone string `yaml:"timezone" validate:"omitempty,iana_timezone"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Storage: StorageConfig{Path: "data/releases.json"},
		Schemas: SchemasConfig{Path: "schemas.yaml"},
	}
	cfg.applyDefaults()
	return cfg
}

// SchedulerEnabled reports whether scheduled releases should fire in this
// process. It defaults to true.
func (c *Config) SchedulerEnabled() bool {
	return c.Scheduler.Enabled == nil || *c.Scheduler.Enabled
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvStoragePath); ok && strings.TrimSpace(v) != "" {
		c.Storage.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// envLookup is swapped in tests.
var envLookup = os.LookupEnv
