// Package config loads looply settings from a YAML file and LOOPLY_*
// environment variables, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/celerix-dev/looply/internal/vault"
	"github.com/celerix-dev/looply/pkg/sdk"
	"gopkg.in/yaml.v3"
)

// Config is the full looply configuration.
type Config struct {
	DataDir        string `yaml:"data_dir"`
	TCPPort        string `yaml:"tcp_port"`
	HTTPPort       string `yaml:"http_port"`
	DisableTLS     bool   `yaml:"disable_tls"`
	StoreAddr      string `yaml:"store_addr"`
	MasterKey      string `yaml:"master_key"`
	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`
	Profile        string `yaml:"profile"`
	FreeHabitLimit int    `yaml:"free_habit_limit"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DataDir:        "./data",
		TCPPort:        "7001",
		HTTPPort:       "7002",
		LogLevel:       "info",
		Profile:        "default",
		FreeHabitLimit: 3,
	}
}

// Load reads path (a missing file is not an error), applies environment
// overrides and validates the result. An empty path falls back to LOOPLY_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("LOOPLY_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("LOOPLY_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LOOPLY_PORT"); v != "" {
		c.TCPPort = v
	}
	if v := os.Getenv("LOOPLY_HTTP_PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("LOOPLY_DISABLE_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOOPLY_DISABLE_TLS: %w", err)
		}
		c.DisableTLS = b
	}
	if v := os.Getenv("LOOPLY_STORE_ADDR"); v != "" {
		c.StoreAddr = v
	}
	if v := os.Getenv("LOOPLY_MASTER_KEY"); v != "" {
		c.MasterKey = v
	}
	if v := os.Getenv("LOOPLY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOOPLY_PROFILE"); v != "" {
		c.Profile = v
	}
	return nil
}

// Validate checks the fields that would otherwise fail late.
func (c Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, "data_dir must not be empty")
	}
	for name, port := range map[string]string{"tcp_port": c.TCPPort, "http_port": c.HTTPPort} {
		if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
			errs = append(errs, fmt.Sprintf("%s %q is not a port", name, port))
		}
	}
	if err := sdk.ValidateProfileID(c.Profile); err != nil {
		errs = append(errs, err.Error())
	}
	if c.FreeHabitLimit < 1 {
		errs = append(errs, "free_habit_limit must be at least 1")
	}
	if _, err := vault.ParseKey(c.MasterKey); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Key returns the decoded master key, nil when encryption is off.
func (c Config) Key() []byte {
	key, _ := vault.ParseKey(c.MasterKey)
	return key
}
