package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/logging"
	"github.com/sufield/didchain/internal/ports"
	"github.com/sufield/didchain/internal/signing"
)

// DefaultGenesisFragment names the signing method of a new identity.
const DefaultGenesisFragment = "sign-0"

// ErrClientRequired is returned when a manager outside test mode has no
// ledger client.
var ErrClientRequired = errors.New("ledger client is required outside test mode")

// ErrWatchUnsupported is returned by Account.Watch when the ledger client
// cannot push notifications, and always in test mode.
var ErrWatchUnsupported = errors.New("ledger client does not support watching")

// Manager creates, loads and deletes accounts that share one storage and one
// ledger client.
type Manager struct {
	storage ports.Storage
	client  ports.Client
	cfg     AccountConfig
	logger  *slog.Logger
	now     func() time.Time
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger passed to every account.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithClock replaces the clock used for document timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a manager. client may be nil in test mode.
func NewManager(storage ports.Storage, client ports.Client, cfg AccountConfig, opts ...ManagerOption) (*Manager, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if client == nil && !cfg.TestMode {
		return nil, ErrClientRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		storage: storage,
		client:  client,
		cfg:     cfg,
		now:     domain.Timestamp,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger)
	return m, nil
}

// CreateIdentityOptions configure a new identity.
type CreateIdentityOptions struct {
	// Fragment of the genesis signing method. Defaults to "sign-0".
	Fragment string
	// KeyType of the genesis key. Defaults to Ed25519.
	KeyType signing.KeyType
}

// CreateIdentity generates a genesis key, derives the DID from it and
// publishes the self-signed genesis document.
//
// Nothing of the identity remains in storage if any step fails.
func (m *Manager) CreateIdentity(ctx context.Context, opts CreateIdentityOptions) (acct *Account, err error) {
	fragment := opts.Fragment
	if fragment == "" {
		fragment = DefaultGenesisFragment
	}
	kt := opts.KeyType
	if kt == "" {
		kt = signing.KeyTypeEd25519
	}

	id := ports.NewIdentityID()
	defer func() {
		if err != nil {
			if purgeErr := m.storage.Purge(ctx, id); purgeErr != nil {
				m.logger.Warn("failed to purge incomplete identity", "id", id.String(), "error", purgeErr)
			}
		}
	}()

	temp := ports.TemporaryKeyLocation(kt, fragment)
	public, err := m.storage.KeyGenerate(ctx, id, temp)
	if err != nil {
		return nil, err
	}
	if err := m.storage.KeyMove(ctx, id, temp, ports.NewKeyLocation(kt, fragment, public)); err != nil {
		return nil, err
	}

	did := signing.DeriveDID(public)
	genesis := domain.NewDocument(did, signing.NewMethod(did, fragment, kt, public), m.now())
	acct = m.account(id, genesis, nil, domain.NewChainState())

	if err := m.storage.IndexSet(ctx, did, id); err != nil {
		return nil, err
	}
	if _, err := acct.Publish(ctx, PublishOptions{}); err != nil {
		return nil, err
	}
	m.logger.Info("identity created", "did", did.String(), "id", id.String())
	return acct, nil
}

// LoadIdentity opens the account of a stored identity.
func (m *Manager) LoadIdentity(ctx context.Context, did domain.DID) (*Account, error) {
	id, err := m.storage.IndexGet(ctx, did)
	if err != nil {
		return nil, err
	}
	doc, err := m.storage.DocumentGet(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := m.storage.ChainStateGet(ctx, id)
	if err != nil {
		return nil, err
	}

	var published *domain.Document
	if !state.IsNewIdentity() {
		published = doc.Clone()
	}
	return m.account(id, doc, published, state), nil
}

// DeleteIdentity removes every trace of an identity from storage. The ledger
// keeps its history.
func (m *Manager) DeleteIdentity(ctx context.Context, did domain.DID) error {
	id, err := m.storage.IndexGet(ctx, did)
	if err != nil {
		return err
	}
	if err := m.storage.Purge(ctx, id); err != nil {
		return err
	}
	m.logger.Info("identity deleted", "did", did.String())
	return m.storage.Flush(ctx)
}

// ListIdentities lists every stored identity ordered by DID.
func (m *Manager) ListIdentities(ctx context.Context) ([]ports.IndexEntry, error) {
	return m.storage.Index(ctx)
}

// FetchAll fetches every account concurrently and returns the first error.
// A failed fetch does not cancel the others.
func (m *Manager) FetchAll(ctx context.Context, accounts ...*Account) error {
	var g errgroup.Group
	for _, acct := range accounts {
		g.Go(func() error {
			if _, err := acct.FetchDocument(ctx); err != nil {
				return fmt.Errorf("fetch %s: %w", acct.DID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Manager) account(id ports.IdentityID, doc, published *domain.Document, state domain.ChainState) *Account {
	return &Account{
		id:        id,
		document:  doc,
		published: published,
		state:     state,
		cfg:       m.cfg,
		storage:   m.storage,
		client:    m.client,
		logger:    m.logger.With("did", doc.ID.String()),
		now:       m.now,
	}
}
