package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides overrides config values with environment variables if set
// Returns error for invalid environment variable values to fail fast
func applyEnvOverrides(cfg *Config) error {
	// Account
	if v := os.Getenv("DIDCHAIN_AUTOPUBLISH"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DIDCHAIN_AUTOPUBLISH %q: %w", v, err)
		}
		cfg.Account.AutoPublish = &b
	}
	if v := os.Getenv("DIDCHAIN_AUTOSAVE"); v != "" {
		cfg.Account.AutoSave = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("DIDCHAIN_AUTOSAVE_BATCH_SIZE"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid DIDCHAIN_AUTOSAVE_BATCH_SIZE %q: %w", v, err)
		}
		cfg.Account.BatchSize = n
	}
	if v := os.Getenv("DIDCHAIN_TEST_MODE"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DIDCHAIN_TEST_MODE %q: %w", v, err)
		}
		cfg.Account.TestMode = b
	}

	// Storage
	if v := os.Getenv("DIDCHAIN_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("DIDCHAIN_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("DIDCHAIN_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}

	// Ledger
	if v := os.Getenv("DIDCHAIN_LEDGER_DRIVER"); v != "" {
		cfg.Ledger.Driver = v
	}
	if v := os.Getenv("DIDCHAIN_LEDGER_URL"); v != "" {
		cfg.Ledger.URL = v
	}
	if v := os.Getenv("DIDCHAIN_LEDGER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DIDCHAIN_LEDGER_TIMEOUT %q: %w", v, err)
		}
		cfg.Ledger.Timeout = d
	}

	// Logging
	if v := os.Getenv("DIDCHAIN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DIDCHAIN_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Server
	if v := os.Getenv("DIDCHAIN_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}

	return nil
}

// parseBool parses boolean environment variables
// Accepts: "true", "1", "yes", "on" for true; "false", "0", "no", "off" for false
func parseBool(value string) (bool, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", value)
	}
}
