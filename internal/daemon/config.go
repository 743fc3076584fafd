// Package daemon holds the muskyd configuration and its TOML loader.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration, loaded from TOML.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Economy EconomyConfig `toml:"economy"`
	Sweep   SweepConfig   `toml:"sweep"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig configures the on-disk database location.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// EconomyConfig configures account bootstrap behavior.
type EconomyConfig struct {
	// AdminAccounts are created privileged: unbounded pools and
	// overdraft-exempt balances.
	AdminAccounts []string `toml:"admin_accounts"`
	SignupBonus   float64  `toml:"signup_bonus"`
}

// SweepConfig configures the periodic maintenance pass.
type SweepConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

// IntervalDuration parses the sweep interval, falling back to the
// default on a missing or malformed value.
func (c SweepConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// MetricsConfig gates the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is a zerolog level name: debug, info, warn, error.
	Level string `toml:"level"`
	// Pretty switches from JSON lines to the console writer.
	Pretty bool `toml:"pretty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Storage: StorageConfig{
			Dir: defaultStorageDir(),
		},
		Economy: EconomyConfig{
			SignupBonus: 1000,
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: "10m",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration file, layering it over the defaults. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "muskyd.toml"
	}
	return filepath.Join(home, ".muskyd", "config.toml")
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".muskyd")
}
