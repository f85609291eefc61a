package config

import "time"

// Default values for unset fields.
const (
	DefaultStoragePath       = "didchain.json"
	DefaultLedgerTimeout     = 30 * time.Second
	DefaultListenAddr        = ":8780"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultBatchSize         = 16
)

// Default returns the configuration used without a config file: in-memory
// storage and ledger, autopublish, flush after every update.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unspecified configuration
func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Account.AutoSave == "" {
		cfg.Account.AutoSave = AutoSaveEvery
	}
	if cfg.Account.AutoSave == AutoSaveBatch && cfg.Account.BatchSize == 0 {
		cfg.Account.BatchSize = DefaultBatchSize
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageMemory
	}
	if cfg.Storage.Driver == StorageFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}

	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = LedgerMemory
	}
	if cfg.Ledger.Timeout == 0 {
		cfg.Ledger.Timeout = DefaultLedgerTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}
