package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Bridge    BridgeConfig
	Editor    EditorConfig
	Webview   WebviewConfig
	Storage   StorageConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Global            bool `envconfig:"RATE_LIMIT_GLOBAL" default:"false"` // One limiter for all clients instead of one per IP
}

// BridgeConfig holds command bridge configuration.
//
// CallTimeout is applied by HTTP callers only; the invoker itself never
// times out. EvictAfter of zero disables the abandoned-slot sweeper.
type BridgeConfig struct {
	DevMode       bool          `envconfig:"BRIDGE_DEV_MODE" default:"false"`
	CallTimeout   time.Duration `envconfig:"BRIDGE_CALL_TIMEOUT" default:"10s"`
	EvictAfter    time.Duration `envconfig:"BRIDGE_EVICT_AFTER" default:"0s"`
	EvictInterval time.Duration `envconfig:"BRIDGE_EVICT_INTERVAL" default:"1m"`
}

// EditorConfig holds command façade configuration.
type EditorConfig struct {
	Platform         string        `envconfig:"EDITOR_PLATFORM" default:"ios"`
	FocusDelay       time.Duration `envconfig:"EDITOR_FOCUS_DELAY" default:"200ms"`
	NativeFocusDelay time.Duration `envconfig:"EDITOR_NATIVE_FOCUS_DELAY" default:"1ms"`
}

// WebviewConfig selects and tunes the execution context.
type WebviewConfig struct {
	Mode    string        `envconfig:"WEBVIEW_MODE" default:"remote"` // "embedded" or "remote"
	Script  string        `envconfig:"WEBVIEW_SCRIPT" default:""`
	Timeout time.Duration `envconfig:"WEBVIEW_TIMEOUT" default:"5s"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Path             string `envconfig:"STORAGE_PATH" default:"notebridge.db"`
	SettingsDefaults string `envconfig:"SETTINGS_DEFAULTS" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks enumerated fields and the sweeper settings.
func (c *Config) Validate() error {
	switch c.Webview.Mode {
	case "embedded", "remote":
	default:
		return fmt.Errorf("invalid WEBVIEW_MODE %q: want embedded or remote", c.Webview.Mode)
	}
	switch c.Editor.Platform {
	case "android", "ios", "web":
	default:
		return fmt.Errorf("invalid EDITOR_PLATFORM %q", c.Editor.Platform)
	}
	if c.Bridge.EvictAfter > 0 && c.Bridge.EvictInterval <= 0 {
		return fmt.Errorf("BRIDGE_EVICT_INTERVAL must be positive when BRIDGE_EVICT_AFTER is set, got %s", c.Bridge.EvictInterval)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Bridge: BridgeConfig{
			DevMode:       false,
			CallTimeout:   10 * time.Second,
			EvictAfter:    0,
			EvictInterval: time.Minute,
		},
		Editor: EditorConfig{
			Platform:         "ios",
			FocusDelay:       200 * time.Millisecond,
			NativeFocusDelay: time.Millisecond,
		},
		Webview: WebviewConfig{
			Mode:    "remote",
			Timeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Path: "notebridge.db",
		},
	}
}
