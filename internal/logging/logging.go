// Package logging builds the structured loggers used across the module.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sufield/didchain/internal/debug"
)

// Config selects the level and output format of a logger.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns info-level text logging.
func Default() Config {
	return Config{Level: "info", Format: "text"}
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Validate checks level and format.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", "text", "json":
		return nil
	}
	return fmt.Errorf("unknown log format %q (want text or json)", c.Format)
}

// New builds a logger writing to w. Debug mode (DIDCHAIN_DEBUG) forces the
// debug level and may override the format.
func New(w io.Writer, cfg Config) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := ParseLevel(cfg.Level)
	format := cfg.Format
	if debug.IsEnabled() {
		level = slog.LevelDebug
		if debug.Active.LogFormat != "" {
			format = debug.Active.LogFormat
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrNop returns l, or a discarding logger if l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
