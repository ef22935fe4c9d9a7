// Package config loads simman settings from an optional TOML file with
// environment variable overrides on top.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable. Zero values are filled from defaults, so a
// missing or partial config file is fine.
type Config struct {
	// SimctlPath overrides xcrun discovery. Env: SIMMAN_SIMCTL.
	SimctlPath string `toml:"simctl_path"`
	// LogLevel is one of debug, info, warn, error. Env: SIMMAN_LOG_LEVEL.
	LogLevel string `toml:"log_level"`

	// CommandTimeout bounds each simctl invocation.
	CommandTimeout duration `toml:"command_timeout"`

	BootPollAttempts   int      `toml:"boot_poll_attempts"`
	BootPollInterval   duration `toml:"boot_poll_interval"`
	DeletePollAttempts int      `toml:"delete_poll_attempts"`
	DeletePollInterval duration `toml:"delete_poll_interval"`
}

// duration lets TOML carry values like "30s" or "500ms".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func defaults() Config {
	return Config{
		LogLevel:           "warn",
		CommandTimeout:     duration(30 * time.Second),
		BootPollAttempts:   10,
		BootPollInterval:   duration(time.Second),
		DeletePollAttempts: 5,
		DeletePollInterval: duration(500 * time.Millisecond),
	}
}

// DefaultPath is where Load looks when SIMMAN_CONFIG is unset.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "simman", "config.toml")
	}
	return filepath.Join(".", "simman.toml")
}

// Load reads the config file if present, applies env overrides, and returns
// the result. A missing file is not an error.
func Load() (*Config, error) {
	path := os.Getenv("SIMMAN_CONFIG")
	if path == "" {
		path = DefaultPath()
	}
	return LoadFile(path)
}

// LoadFile loads a specific config file path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("SIMMAN_SIMCTL"); v != "" {
		cfg.SimctlPath = v
	}
	if v := os.Getenv("SIMMAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return &cfg, nil
}

// Timeout returns the per-invocation timeout as a time.Duration.
func (c *Config) Timeout() time.Duration { return time.Duration(c.CommandTimeout) }

// BootInterval returns the boot/shutdown poll spacing.
func (c *Config) BootInterval() time.Duration { return time.Duration(c.BootPollInterval) }

// DeleteInterval returns the delete verification poll spacing.
func (c *Config) DeleteInterval() time.Duration { return time.Duration(c.DeletePollInterval) }
