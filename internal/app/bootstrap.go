package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sufield/didchain/internal/adapters/outbound/httpledger"
	"github.com/sufield/didchain/internal/adapters/outbound/memledger"
	"github.com/sufield/didchain/internal/adapters/outbound/memstore"
	"github.com/sufield/didchain/internal/adapters/outbound/pgstore"
	"github.com/sufield/didchain/internal/config"
	"github.com/sufield/didchain/internal/debug"
	"github.com/sufield/didchain/internal/logging"
	"github.com/sufield/didchain/internal/ports"
)

// Application is a Manager together with the adapters it was built on.
type Application struct {
	Manager *Manager
	Storage ports.Storage
	Client  ports.Client

	closers []func() error
}

// Bootstrap builds storage, ledger client and Manager from cfg.
//
// Storage drivers: memory, file (memstore snapshot) and postgres (pgstore).
// Ledger drivers: memory (in-process memledger) and http (httpledger).
func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger = logging.OrNop(logger)
	application := &Application{}

	storage, err := application.openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	application.Storage = storage

	client, err := application.openLedger(cfg.Ledger, logger)
	if err != nil {
		_ = application.Close(ctx)
		return nil, err
	}
	application.Client = client

	opts = append([]ManagerOption{WithLogger(logger)}, opts...)
	manager, err := NewManager(storage, client, AccountConfigFrom(cfg.Account), opts...)
	if err != nil {
		_ = application.Close(ctx)
		return nil, err
	}
	application.Manager = manager

	logger.Debug("application ready",
		"storage", cfg.Storage.Driver,
		"ledger", cfg.Ledger.Driver,
		"test_mode", cfg.Account.TestMode)
	return application, nil
}

// AccountConfigFrom converts the account section of a config file.
func AccountConfigFrom(s config.AccountSection) AccountConfig {
	return AccountConfig{
		AutoPublish: s.AutoPublishEnabled(),
		AutoSave: AutoSave{
			Mode:      AutoSaveMode(s.AutoSave),
			BatchSize: s.BatchSize,
		},
		TestMode: s.TestMode,
	}
}

func (a *Application) openStorage(ctx context.Context, s config.StorageSection) (ports.Storage, error) {
	switch s.Driver {
	case config.StorageMemory:
		return memstore.New(), nil
	case config.StorageFile:
		store, err := memstore.Open(s.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoragePostgres:
		store, err := pgstore.Open(ctx, s.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", s.Driver)
}

func (a *Application) openLedger(l config.LedgerSection, logger *slog.Logger) (ports.Client, error) {
	switch l.Driver {
	case config.LedgerMemory:
		opts := []memledger.Option{memledger.WithLogger(logger)}
		if debug.Active.Faults {
			opts = append(opts, memledger.WithFaults(debug.Faults))
		}
		return memledger.New(opts...), nil
	case config.LedgerHTTP:
		client, err := httpledger.New(l.URL, httpledger.WithTimeout(l.Timeout), httpledger.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	}
	return nil, fmt.Errorf("unknown ledger driver %q", l.Driver)
}

// Close flushes storage and releases the adapters.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.Storage != nil {
		if err := a.Storage.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
