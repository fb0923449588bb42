// Package config handles configuration loading and management for Aical.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits a value.
const (
	DefaultWebHost    = "127.0.0.1"
	DefaultWebPort    = 8580
	DefaultNLPEffort  = "medium"
	DefaultNLPTimeout = 30
)

// NLPConfig configures the natural-language backend client.
type NLPConfig struct {
	// BaseURL is the backend root, e.g. "https://nlp.example.com/v1".
	BaseURL string `yaml:"base_url"`
	// APIKey authenticates requests. Prefer the system keychain via
	// `aical secret`; this field is a fallback for platforms without one.
	APIKey string `yaml:"api_key"`
	// Model selects the backend model for classification and drafting.
	Model string `yaml:"model"`
	// Effort is the reasoning effort hint (low, medium, high).
	Effort string `yaml:"effort"`
	// TimeoutSeconds bounds non-streaming calls.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// CalendarConfig configures the calendar backend client.
type CalendarConfig struct {
	// BaseURL is the backend root, e.g. "https://cal.example.com/api".
	BaseURL string `yaml:"base_url"`
	// APIKey authenticates requests. Same keychain preference as NLP.
	APIKey string `yaml:"api_key"`
}

// WebConfig configures the web interface.
type WebConfig struct {
	// Host is the HTTP server host/IP address (default: 127.0.0.1).
	// Use "0.0.0.0" to listen on all interfaces.
	Host string `yaml:"host"`
	// Port is the HTTP server port (default: 8580).
	Port int `yaml:"port"`
	// StaticDir is an optional directory to serve static files from instead
	// of embedded assets, enabling hot-reloading during development.
	StaticDir string `yaml:"static_dir"`
}

// ConversationConfig bounds per-mode conversation history.
type ConversationConfig struct {
	// MaxMessages caps the number of retained messages per mode.
	// Zero uses the built-in default.
	MaxMessages int `yaml:"max_messages"`
	// CharBudget caps the serialized prompt size per mode.
	// Zero uses the built-in default.
	CharBudget int `yaml:"char_budget"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum console log level (debug, info, warn, error).
	Level string `yaml:"level"`
	// FileLevel is the minimum file log level. Empty inherits Level.
	FileLevel string `yaml:"file_level"`
	// File is an optional log file path with rotation. Empty disables
	// file logging.
	File string `yaml:"file"`
	// JSON switches output to JSON format.
	JSON bool `yaml:"json"`
	// Components restricts logging to the named components.
	Components []string `yaml:"components"`
}

// Config represents the complete Aical configuration.
type Config struct {
	NLP          NLPConfig          `yaml:"nlp"`
	Calendar     CalendarConfig     `yaml:"calendar"`
	Web          WebConfig          `yaml:"web"`
	Conversation ConversationConfig `yaml:"conversation"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// DefaultConfigPath returns the default configuration file path for the current platform.
func DefaultConfigPath() string {
	// Check for environment variable override first
	if envPath := os.Getenv("AICALRC"); envPath != "" {
		return envPath
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		configDir = home // macOS traditionally uses ~/.aicalrc
	default: // linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = xdgConfig
		} else {
			home, _ := os.UserHomeDir()
			configDir = home
		}
	}

	return filepath.Join(configDir, ".aicalrc")
}

// Load reads and parses the configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML configuration data into a Config struct, applying
// defaults for omitted values.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.NLP.BaseURL == "" {
		return nil, fmt.Errorf("nlp.base_url is required")
	}
	if cfg.Calendar.BaseURL == "" {
		return nil, fmt.Errorf("calendar.base_url is required")
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Web.Host == "" {
		cfg.Web.Host = DefaultWebHost
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = DefaultWebPort
	}
	if cfg.NLP.Effort == "" {
		cfg.NLP.Effort = DefaultNLPEffort
	}
	if cfg.NLP.TimeoutSeconds <= 0 {
		cfg.NLP.TimeoutSeconds = DefaultNLPTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
