// Package config provides 12-factor configuration management for notebridge.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Bridge: Dev-mode payload logging, caller timeout, abandoned-slot eviction
//   - Editor: Platform family and focus delays
//   - Webview: Execution context mode (embedded goja runtime or remote web view)
//   - Storage: SQLite path and optional YAML settings defaults
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - BRIDGE_DEV_MODE, BRIDGE_CALL_TIMEOUT, BRIDGE_EVICT_AFTER, BRIDGE_EVICT_INTERVAL
//   - EDITOR_PLATFORM, EDITOR_FOCUS_DELAY, EDITOR_NATIVE_FOCUS_DELAY
//   - WEBVIEW_MODE, WEBVIEW_SCRIPT, WEBVIEW_TIMEOUT
//   - STORAGE_PATH, SETTINGS_DEFAULTS
package config
