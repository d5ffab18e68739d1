package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("expected default api url, got %q", cfg.APIURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Timeout)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", cfg.PollInterval)
	}
	if cfg.ActiveAlertLimit != 10 || cfg.SensorPageSize != 25 || cfg.AlertPageSize != 20 {
		t.Errorf("unexpected sizes: %d %d %d", cfg.ActiveAlertLimit, cfg.SensorPageSize, cfg.AlertPageSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestConfigSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Theme = "dracula"
	cfg.APIURL = "https://telemetry.example.com"
	cfg.PollInterval = 15 * time.Second

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if loaded.Theme != "dracula" {
		t.Errorf("expected theme 'dracula', got %q", loaded.Theme)
	}
	if loaded.APIURL != "https://telemetry.example.com" {
		t.Errorf("unexpected api url %q", loaded.APIURL)
	}
	if loaded.PollInterval != 15*time.Second {
		t.Errorf("expected poll interval 15s, got %v", loaded.PollInterval)
	}
}

func TestConfigLoadMissing(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("LoadConfig() should return defaults for missing file, got error: %v", err)
	}
	if cfg.Theme != "solarized-dark" {
		t.Errorf("expected default theme, got %q", cfg.Theme)
	}
}

func TestConfigLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`poll_interval = "soon"`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "poll_interval") {
		t.Errorf("expected poll_interval error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(string(EnvAPIURL), "http://10.0.0.5:9000")
	t.Setenv(string(EnvTimeout), "3s")
	t.Setenv(string(EnvPollInterval), "1s")
	t.Setenv(string(EnvLogLevel), "debug")
	t.Setenv(string(EnvMetricsAddr), ":9100")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:9000" {
		t.Errorf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.Timeout != 3*time.Second || cfg.PollInterval != time.Second {
		t.Errorf("unexpected durations %v %v", cfg.Timeout, cfg.PollInterval)
	}
	if cfg.LogLevel != "debug" || cfg.MetricsAddr != ":9100" {
		t.Errorf("unexpected log level %q or metrics addr %q", cfg.LogLevel, cfg.MetricsAddr)
	}
}

func TestApplyEnvBadDuration(t *testing.T) {
	t.Setenv(string(EnvTimeout), "ten")
	if err := DefaultConfig().ApplyEnv(); err == nil {
		t.Error("expected error for bad timeout")
	}
}

func TestLoadUsesXDGAndEnv(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	if err := os.MkdirAll(filepath.Join(tmp, "pulse"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "pulse", "config.toml"), []byte("theme = \"nord\"\nalert_page_size = 50\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(string(EnvAPIURL), "http://override:8000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Theme != "nord" || cfg.AlertPageSize != 50 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.APIURL != "http://override:8000" {
		t.Errorf("env override not applied: %q", cfg.APIURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad scheme", func(c *Config) { c.APIURL = "ftp://host" }},
		{"no host", func(c *Config) { c.APIURL = "http://" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"negative interval", func(c *Config) { c.PollInterval = -time.Second }},
		{"page size too big", func(c *Config) { c.SensorPageSize = 101 }},
		{"alert page size zero", func(c *Config) { c.AlertPageSize = 0 }},
		{"alert limit zero", func(c *Config) { c.ActiveAlertLimit = 0 }},
		{"no history", func(c *Config) { c.MaxHistory = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
