package app

import (
	"fmt"
)

// AutoSaveMode selects when an account flushes its storage.
type AutoSaveMode string

const (
	// AutoSaveEvery flushes after every persisted operation.
	AutoSaveEvery AutoSaveMode = "every"
	// AutoSaveBatch flushes once BatchSize actions accumulated.
	AutoSaveBatch AutoSaveMode = "batch"
	// AutoSaveNever leaves flushing to the caller.
	AutoSaveNever AutoSaveMode = "never"
)

// AutoSave is the flush policy of an account.
type AutoSave struct {
	Mode      AutoSaveMode
	BatchSize uint64
}

// ShouldFlush reports whether a persist with pending unflushed actions
// should also flush.
func (s AutoSave) ShouldFlush(pending uint64) bool {
	switch s.Mode {
	case AutoSaveEvery:
		return true
	case AutoSaveBatch:
		return pending >= s.BatchSize
	default:
		return false
	}
}

// Validate checks the mode is known and a batch has a size.
func (s AutoSave) Validate() error {
	switch s.Mode {
	case AutoSaveEvery, AutoSaveNever:
		return nil
	case AutoSaveBatch:
		if s.BatchSize == 0 {
			return fmt.Errorf("autosave batch size must be positive")
		}
		return nil
	}
	return fmt.Errorf("unknown autosave mode %q (want every, batch or never)", s.Mode)
}

// AccountConfig controls publishing and persistence of an account.
type AccountConfig struct {
	// AutoPublish publishes after every applied update.
	AutoPublish bool

	AutoSave AutoSave

	// TestMode never talks to the ledger. Message ids are derived locally
	// from the published payload.
	TestMode bool
}

// DefaultAccountConfig publishes and flushes after every update.
func DefaultAccountConfig() AccountConfig {
	return AccountConfig{
		AutoPublish: true,
		AutoSave:    AutoSave{Mode: AutoSaveEvery},
	}
}

// Validate checks the autosave policy.
func (c AccountConfig) Validate() error {
	return c.AutoSave.Validate()
}
