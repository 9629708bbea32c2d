package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig.
const (
	EnvConfig   = "QUIRE_CONFIG"
	EnvEndpoint = "QUIRE_ENDPOINT"
)

// Config is the file-based configuration of the CLI.
type Config struct {
	Endpoint       string         `yaml:"endpoint"`
	CredentialFile string         `yaml:"credential_file"`
	Timeout        time.Duration  `yaml:"timeout"`
	Autosave       AutosaveConfig `yaml:"autosave"`
	Log            LogConfig      `yaml:"log"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-"`
}

// AutosaveConfig configures the autosave scheduler.
type AutosaveConfig struct {
	QuietPeriod     time.Duration `yaml:"quiet_period"`
	DiscardOnSwitch bool          `yaml:"discard_on_switch"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseConfig decodes a YAML document. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads the configuration from explicit, else $QUIRE_CONFIG,
// else the nearest .quire.yaml above the working directory, else
// $XDG_CONFIG_HOME/quire/config.yaml. No file at all yields the zero
// Config. $QUIRE_ENDPOINT overrides the endpoint.
func LoadConfig(explicit string) (Config, error) {
	path, err := locateConfig(explicit)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = ParseConfig(data); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		cfg.Source = path
	}

	if env := os.Getenv(EnvEndpoint); env != "" {
		cfg.Endpoint = env
	}
	return cfg, nil
}

func locateConfig(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env, nil
	}

	if wd, err := os.Getwd(); err == nil {
		if path, err := FindConfig(wd); err == nil {
			return path, nil
		}
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", nil
	}
	if path := filepath.Join(dir, "quire", "config.yaml"); hasFile(path) {
		return path, nil
	}
	return "", nil
}

// Validate collects every problem of the configuration.
func (c Config) Validate() error {
	var errs []string

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("endpoint %q must be an http(s) URL", c.Endpoint))
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, "timeout must not be negative")
	}
	if c.Autosave.QuietPeriod < 0 {
		errs = append(errs, "autosave.quiet_period must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// LogLevel returns the configured level, info by default.
func (c Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}

// Options converts the configuration into functional options. Zero values
// are left to the defaults.
func (c Config) Options() []Option {
	var opts []Option
	if c.Endpoint != "" {
		opts = append(opts, WithEndpoint(c.Endpoint))
	}
	if c.CredentialFile != "" {
		opts = append(opts, WithCredentialFile(expandHome(c.CredentialFile)))
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	if c.Autosave.QuietPeriod > 0 {
		opts = append(opts, WithQuietPeriod(c.Autosave.QuietPeriod))
	}
	if c.Autosave.DiscardOnSwitch {
		opts = append(opts, WithDiscardOnSwitch(true))
	}
	return opts
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
