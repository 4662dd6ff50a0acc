package webview

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
)

// ErrClosed is returned for work submitted after Close
var ErrClosed = errors.New("webview: runtime closed")

// Config defines runtime configuration
type Config struct {
	Timeout       time.Duration // Per-execution interrupt timeout, 0 disables it
	EnableConsole bool          // Expose console.log/info/warn/error
	Bootstrap     string        // Script evaluated once at start, typically the editor bundle
}

// MessageHandler receives every post(id, value) made inside the runtime
type MessageHandler func(bridge.Message) bool

// Result holds the outcome of a synchronous execution
type Result struct {
	Value    any           // Exported completion value, nil for undefined/null
	Console  []LogEntry    // Console and logger output produced during the run
	Duration time.Duration // Execution time
}

// LogEntry is one line of console or logger output
type LogEntry struct {
	Level   string
	Message string
	Time    time.Time
}

// DOMChange records an attribute write made through the document proxy
type DOMChange struct {
	Selector string
	Property string
	Value    string
}

// DefaultConfig returns the runtime defaults
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		EnableConsole: true,
	}
}
