package debug

import (
	"os"
	"strconv"
)

// Config holds debug mode configuration
type Config struct {
	// Enabled forces debug-level logging everywhere
	Enabled bool

	// Faults exposes the fault injection endpoint of the ledger API
	Faults bool

	// LogFormat overrides the configured log format ("text" or "json")
	LogFormat string
}

// Active is the global debug configuration
var Active Config

// Init initializes debug configuration from environment variables
func Init() {
	Active = Config{
		Enabled:   parseBool(os.Getenv("DIDCHAIN_DEBUG"), false),
		Faults:    parseBool(os.Getenv("DIDCHAIN_DEBUG_FAULTS"), false),
		LogFormat: getEnvOrDefault("DIDCHAIN_DEBUG_LOG_FORMAT", ""),
	}

	// Fault injection only makes sense while debugging
	if Active.Faults {
		Active.Enabled = true
	}
}

func parseBool(s string, defaultVal bool) bool {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsEnabled returns whether debug mode is enabled
func IsEnabled() bool {
	return Active.Enabled
}
