package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvKey names an environment variable that overrides a config value.
type EnvKey string

const (
	EnvAPIURL       EnvKey = "PULSE_API_URL"
	EnvTimeout      EnvKey = "PULSE_TIMEOUT"
	EnvPollInterval EnvKey = "PULSE_POLL_INTERVAL"
	EnvLogLevel     EnvKey = "PULSE_LOG_LEVEL"
	EnvMetricsAddr  EnvKey = "PULSE_METRICS_ADDR"
)

const maxPageSize = 100

type Config struct {
	APIURL           string        `toml:"api_url"`
	Timeout          time.Duration `toml:"-"`
	TimeoutStr       string        `toml:"timeout"`
	PollInterval     time.Duration `toml:"-"`
	PollIntervalStr  string        `toml:"poll_interval"`
	ActiveAlertLimit int           `toml:"active_alert_limit"`
	SensorPageSize   int           `toml:"sensor_page_size"`
	AlertPageSize    int           `toml:"alert_page_size"`
	MaxHistory       int           `toml:"max_history"`
	Theme            string        `toml:"theme"`
	LogLevel         string        `toml:"log_level"`
	MetricsAddr      string        `toml:"metrics_addr"`
}

func DefaultConfig() *Config {
	return &Config{
		APIURL:           "http://localhost:8000",
		Timeout:          10 * time.Second,
		TimeoutStr:       "10s",
		PollInterval:     5 * time.Second,
		PollIntervalStr:  "5s",
		ActiveAlertLimit: 10,
		SensorPageSize:   25,
		AlertPageSize:    20,
		MaxHistory:       360,
		Theme:            "solarized-dark",
		LogLevel:         "info",
	}
}

// LoadConfig reads the TOML file at path over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file from the default location and applies
// environment overrides.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(cfg *Config, path string) error {
	cfg.TimeoutStr = cfg.Timeout.String()
	cfg.PollIntervalStr = cfg.PollInterval.String()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// ApplyEnv overrides fields from PULSE_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup(EnvAPIURL); ok {
		c.APIURL = v
	}
	if v, ok := lookup(EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvPollInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		c.PollInterval = d
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.MetricsAddr = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q: must be an http(s) URL", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	for name, v := range map[string]int{
		"active_alert_limit": c.ActiveAlertLimit,
		"sensor_page_size":   c.SensorPageSize,
		"alert_page_size":    c.AlertPageSize,
	} {
		if v < 1 || v > maxPageSize {
			return fmt.Errorf("%s must be between 1 and %d, got %d", name, maxPageSize, v)
		}
	}
	if c.MaxHistory < 1 {
		return fmt.Errorf("max_history must be positive, got %d", c.MaxHistory)
	}
	return nil
}

func (c *Config) parseDurations() error {
	if c.TimeoutStr != "" {
		d, err := time.ParseDuration(c.TimeoutStr)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	if c.PollIntervalStr != "" {
		d, err := time.ParseDuration(c.PollIntervalStr)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	return nil
}

func lookup(key EnvKey) (string, bool) {
	v, ok := os.LookupEnv(string(key))
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
