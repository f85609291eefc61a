package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration after defaults were applied.
//
// Ensures:
//   - storage.driver is memory, file or postgres, with its path or dsn
//   - ledger.driver is memory or http; http needs an absolute http(s) url
//   - account.autosave is every, batch or never; batch needs a batch size
//   - log level and format are known
//   - server.listen_addr is set
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Path == "" {
			return errors.New("storage.path must be set for the file driver")
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want memory, file or postgres)", c.Storage.Driver)
	}

	switch c.Ledger.Driver {
	case LedgerMemory:
	case LedgerHTTP:
		if c.Ledger.URL == "" {
			return errors.New("ledger.url must be set for the http driver")
		}
		u, err := url.Parse(c.Ledger.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid ledger.url %q: want http(s)://host[:port]", c.Ledger.URL)
		}
	default:
		return fmt.Errorf("unknown ledger.driver %q (want memory or http)", c.Ledger.Driver)
	}
	if c.Ledger.Timeout < 0 {
		return fmt.Errorf("ledger.timeout must not be negative, got %s", c.Ledger.Timeout)
	}

	switch c.Account.AutoSave {
	case AutoSaveEvery, AutoSaveNever:
	case AutoSaveBatch:
		if c.Account.BatchSize == 0 {
			return errors.New("account.batch_size must be positive in batch mode")
		}
	default:
		return fmt.Errorf("unknown account.autosave %q (want every, batch or never)", c.Account.AutoSave)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr must be set")
	}
	return nil
}
