// Package config loads the decompiler CLI's on-disk configuration: the
// default render options plus optional cache backend settings, read
// from a YAML file with gopkg.in/yaml.v3 the same way the teacher
// loads its own project configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level on-disk configuration document.
type Config struct {
	Format FormatConfig `yaml:"format"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

// FormatConfig mirrors printer.FormatOptions in a serializable shape;
// the decompiler package only recognizes these two knobs.
type FormatConfig struct {
	IndentUnit string `yaml:"indent_unit"`
	MaxWidth   int    `yaml:"max_width"`
}

// CacheConfig selects and configures the content-addressed render
// cache. Driver is one of "sqlite", "mysql", "postgres"; DSN is passed
// through verbatim to the matching sql driver.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
}

// LogConfig holds the log level and pretty-print settings read from the
// config file; no package of this module reads them.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Format: FormatConfig{IndentUnit: "  ", MaxWidth: 0},
		Cache:  CacheConfig{Enabled: false, Driver: "sqlite", DSN: "hlbcgo-cache.db"},
		Log:    LogConfig{Level: "info", Pretty: true},
	}
}

// Load reads and parses a YAML config file at path. A missing file is
// not an error: Default() is returned instead, matching a CLI tool
// that works with zero configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
