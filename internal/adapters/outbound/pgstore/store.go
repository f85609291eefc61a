package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/ports"
	"github.com/sufield/didchain/internal/signing"
)

// Store is a ports.Storage on PostgreSQL. Writes are durable when they
// return, so Flush only checks the connection.
type Store struct {
	db *pgxpool.Pool
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ports.ErrStorage, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ports.ErrStorage, err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ports.ErrStorage, err)
	}
	return &Store{db: pool}, nil
}

// New wraps an existing pool. The schema must already exist.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.db.Close()
}

// KeyGenerate implements ports.KeyStorage.
func (s *Store) KeyGenerate(ctx context.Context, id ports.IdentityID, loc ports.KeyLocation) ([]byte, error) {
	public, private, err := signing.GenerateKey(loc.KeyType)
	if err != nil {
		return nil, err
	}
	tag, err := s.db.Exec(ctx, `
INSERT INTO didchain_keys(identity_id,location,key_type,fragment,key_hash,private_key)
VALUES($1,$2,$3,$4,$5,$6)
ON CONFLICT (identity_id,location) DO NOTHING`,
		id.String(), loc.String(), string(loc.KeyType), loc.Fragment, loc.KeyHash, private)
	if err != nil {
		return nil, storageErr("insert key", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: %s", ports.ErrKeyExists, loc)
	}
	return public, nil
}

// KeyMove implements ports.KeyStorage.
func (s *Store) KeyMove(ctx context.Context, id ports.IdentityID, from, to ports.KeyLocation) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var taken bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM didchain_keys WHERE identity_id=$1 AND location=$2)`,
		id.String(), to.String()).Scan(&taken)
	if err != nil {
		return storageErr("check key", err)
	}
	if taken {
		return fmt.Errorf("%w: %s", ports.ErrKeyExists, to)
	}

	tag, err := tx.Exec(ctx, `
UPDATE didchain_keys
SET location=$3, key_type=$4, fragment=$5, key_hash=$6
WHERE identity_id=$1 AND location=$2`,
		id.String(), from.String(), to.String(), string(to.KeyType), to.Fragment, to.KeyHash)
	if err != nil {
		return storageErr("move key", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ports.ErrKeyNotFound, from)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// KeyPublic implements ports.KeyStorage.
func (s *Store) KeyPublic(ctx context.Context, id ports.IdentityID, loc ports.KeyLocation) ([]byte, error) {
	private, err := s.privateKey(ctx, id, loc)
	if err != nil {
		return nil, err
	}
	return signing.PublicFromPrivate(loc.KeyType, private)
}

// KeySign implements ports.KeyStorage.
func (s *Store) KeySign(ctx context.Context, id ports.IdentityID, loc ports.KeyLocation, data []byte) ([]byte, error) {
	private, err := s.privateKey(ctx, id, loc)
	if err != nil {
		return nil, err
	}
	return signing.Sign(loc.KeyType, private, data)
}

// KeyExists implements ports.KeyStorage.
func (s *Store) KeyExists(ctx context.Context, id ports.IdentityID, loc ports.KeyLocation) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM didchain_keys WHERE identity_id=$1 AND location=$2)`,
		id.String(), loc.String()).Scan(&ok)
	if err != nil {
		return false, storageErr("check key", err)
	}
	return ok, nil
}

// KeyDelete implements ports.KeyStorage.
func (s *Store) KeyDelete(ctx context.Context, id ports.IdentityID, loc ports.KeyLocation) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM didchain_keys WHERE identity_id=$1 AND location=$2`,
		id.String(), loc.String())
	if err != nil {
		return storageErr("delete key", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ports.ErrKeyNotFound, loc)
	}
	return nil
}

func (s *Store) privateKey(ctx context.Context, id ports.IdentityID, loc ports.KeyLocation) ([]byte, error) {
	var private []byte
	err := s.db.QueryRow(ctx, `SELECT private_key FROM didchain_keys WHERE identity_id=$1 AND location=$2`,
		id.String(), loc.String()).Scan(&private)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ports.ErrKeyNotFound, loc)
	}
	if err != nil {
		return nil, storageErr("read key", err)
	}
	return private, nil
}

// DocumentGet implements ports.StateStorage.
func (s *Store) DocumentGet(ctx context.Context, id ports.IdentityID) (*domain.Document, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT document FROM didchain_documents WHERE identity_id=$1`, id.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ports.ErrIdentityNotFound, id)
	}
	if err != nil {
		return nil, storageErr("read document", err)
	}
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode document %s: %v", ports.ErrStorage, id, err)
	}
	return &doc, nil
}

// DocumentSet implements ports.StateStorage.
func (s *Store) DocumentSet(ctx context.Context, id ports.IdentityID, doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ports.ErrStorage)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", ports.ErrStorage, err)
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO didchain_documents(identity_id,document)
VALUES($1,$2::jsonb)
ON CONFLICT (identity_id) DO UPDATE SET document=EXCLUDED.document, updated_at=now()`,
		id.String(), string(raw))
	if err != nil {
		return storageErr("write document", err)
	}
	return nil
}

// ChainStateGet implements ports.StateStorage.
func (s *Store) ChainStateGet(ctx context.Context, id ports.IdentityID) (domain.ChainState, error) {
	var integration, diff string
	err := s.db.QueryRow(ctx, `
SELECT last_integration_message_id,last_diff_message_id
FROM didchain_chain_states
WHERE identity_id=$1`, id.String()).Scan(&integration, &diff)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChainState{}, fmt.Errorf("%w: %s", ports.ErrIdentityNotFound, id)
	}
	if err != nil {
		return domain.ChainState{}, storageErr("read chain state", err)
	}

	var state domain.ChainState
	if state.LastIntegrationMessageID, err = domain.ParseMessageID(integration); err != nil {
		return domain.ChainState{}, fmt.Errorf("%w: %v", ports.ErrStorage, err)
	}
	if state.LastDiffMessageID, err = domain.ParseMessageID(diff); err != nil {
		return domain.ChainState{}, fmt.Errorf("%w: %v", ports.ErrStorage, err)
	}
	return state, nil
}

// ChainStateSet implements ports.StateStorage.
func (s *Store) ChainStateSet(ctx context.Context, id ports.IdentityID, state domain.ChainState) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO didchain_chain_states(identity_id,last_integration_message_id,last_diff_message_id)
VALUES($1,$2,$3)
ON CONFLICT (identity_id) DO UPDATE SET
  last_integration_message_id=EXCLUDED.last_integration_message_id,
  last_diff_message_id=EXCLUDED.last_diff_message_id`,
		id.String(), state.LastIntegrationMessageID.String(), state.LastDiffMessageID.String())
	if err != nil {
		return storageErr("write chain state", err)
	}
	return nil
}

// IndexGet implements ports.StateStorage.
func (s *Store) IndexGet(ctx context.Context, did domain.DID) (ports.IdentityID, error) {
	var raw string
	err := s.db.QueryRow(ctx, `SELECT identity_id FROM didchain_index WHERE did=$1`, did.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.IdentityID{}, fmt.Errorf("%w: %s", ports.ErrIdentityNotFound, did)
	}
	if err != nil {
		return ports.IdentityID{}, storageErr("read index", err)
	}
	id, err := ports.ParseIdentityID(raw)
	if err != nil {
		return ports.IdentityID{}, fmt.Errorf("%w: %v", ports.ErrStorage, err)
	}
	return id, nil
}

// IndexSet implements ports.StateStorage.
func (s *Store) IndexSet(ctx context.Context, did domain.DID, id ports.IdentityID) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO didchain_index(did,identity_id)
VALUES($1,$2)
ON CONFLICT (did) DO UPDATE SET identity_id=EXCLUDED.identity_id`,
		did.String(), id.String())
	if err != nil {
		return storageErr("write index", err)
	}
	return nil
}

// Index implements ports.StateStorage.
func (s *Store) Index(ctx context.Context) ([]ports.IndexEntry, error) {
	rows, err := s.db.Query(ctx, `SELECT did,identity_id FROM didchain_index ORDER BY did ASC`)
	if err != nil {
		return nil, storageErr("list index", err)
	}
	defer rows.Close()

	var out []ports.IndexEntry
	for rows.Next() {
		var did, raw string
		if err := rows.Scan(&did, &raw); err != nil {
			return nil, storageErr("scan index", err)
		}
		id, err := ports.ParseIdentityID(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrStorage, err)
		}
		out = append(out, ports.IndexEntry{DID: domain.DID(did), ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list index", err)
	}
	return out, nil
}

// Purge implements ports.StateStorage.
func (s *Store) Purge(ctx context.Context, id ports.IdentityID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, table := range []string{"didchain_keys", "didchain_documents", "didchain_chain_states", "didchain_index"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE identity_id=$1`, id.String()); err != nil {
			return storageErr("purge "+table, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// Flush implements ports.StateStorage.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ports.ErrStorage, op, err)
}

var _ ports.Storage = (*Store)(nil)
