package sandbox

import "time"

// Config defines sandbox configuration.
type Config struct {
	Timeout       time.Duration // Execution timeout
	EnableConsole bool          // Allow console.log/warn/error
}

// Result holds execution result.
type Result struct {
	Value    interface{}   // Script return value
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
}

// LogEntry represents console output captured during execution.
type LogEntry struct {
	Level   string
	Message string
	Time    time.Time
}

// DefaultConfig returns limits suited to extraction scripts.
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		EnableConsole: true,
	}
}
