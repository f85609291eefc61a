package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/ports"
	"github.com/sufield/didchain/internal/signing"
)

// Store keeps keys, documents, chain states and the DID index in memory.
// Every value crossing the boundary is copied, so callers never share state
// with the store.
//
// With a snapshot path, Flush writes the whole store to that file and Open
// reads it back.
type Store struct {
	mu   sync.RWMutex
	path string

	keys      map[ports.IdentityID]map[string]storedKey // KeyLocation.String() -> key
	documents map[ports.IdentityID]*domain.Document
	states    map[ports.IdentityID]domain.ChainState
	index     map[domain.DID]ports.IdentityID
}

type storedKey struct {
	Location ports.KeyLocation `json:"location"`
	Private  []byte            `json:"private"`
}

// New returns an empty store without a snapshot file.
func New() *Store {
	return &Store{
		keys:      make(map[ports.IdentityID]map[string]storedKey),
		documents: make(map[ports.IdentityID]*domain.Document),
		states:    make(map[ports.IdentityID]domain.ChainState),
		index:     make(map[domain.DID]ports.IdentityID),
	}
}

// Open returns a store backed by the snapshot at path. A missing file is an
// empty store.
func Open(path string) (*Store, error) {
	s := New()
	s.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %v", ports.ErrStorage, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot %s: %v", ports.ErrStorage, path, err)
	}
	snap.restore(s)
	return s, nil
}

// KeyGenerate implements ports.KeyStorage.
func (s *Store) KeyGenerate(_ context.Context, id ports.IdentityID, loc ports.KeyLocation) ([]byte, error) {
	public, private, err := signing.GenerateKey(loc.KeyType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.keysOf(id)
	if _, ok := keys[loc.String()]; ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrKeyExists, loc)
	}
	keys[loc.String()] = storedKey{Location: loc, Private: private}
	return public, nil
}

// KeyMove implements ports.KeyStorage.
func (s *Store) KeyMove(_ context.Context, id ports.IdentityID, from, to ports.KeyLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.keysOf(id)
	key, ok := keys[from.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrKeyNotFound, from)
	}
	if _, taken := keys[to.String()]; taken {
		return fmt.Errorf("%w: %s", ports.ErrKeyExists, to)
	}
	delete(keys, from.String())
	key.Location = to
	keys[to.String()] = key
	return nil
}

// KeyPublic implements ports.KeyStorage.
func (s *Store) KeyPublic(_ context.Context, id ports.IdentityID, loc ports.KeyLocation) ([]byte, error) {
	key, err := s.key(id, loc)
	if err != nil {
		return nil, err
	}
	return signing.PublicFromPrivate(loc.KeyType, key.Private)
}

// KeySign implements ports.KeyStorage.
func (s *Store) KeySign(ctx context.Context, id ports.IdentityID, loc ports.KeyLocation, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := s.key(id, loc)
	if err != nil {
		return nil, err
	}
	return signing.Sign(loc.KeyType, key.Private, data)
}

// KeyExists implements ports.KeyStorage.
func (s *Store) KeyExists(_ context.Context, id ports.IdentityID, loc ports.KeyLocation) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[id][loc.String()]
	return ok, nil
}

// KeyDelete implements ports.KeyStorage.
func (s *Store) KeyDelete(_ context.Context, id ports.IdentityID, loc ports.KeyLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.keys[id]
	if _, ok := keys[loc.String()]; !ok {
		return fmt.Errorf("%w: %s", ports.ErrKeyNotFound, loc)
	}
	delete(keys, loc.String())
	return nil
}

func (s *Store) key(id ports.IdentityID, loc ports.KeyLocation) (storedKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[id][loc.String()]
	if !ok {
		return storedKey{}, fmt.Errorf("%w: %s", ports.ErrKeyNotFound, loc)
	}
	return key, nil
}

// keysOf returns the key map of id, creating it. Callers hold the write lock.
func (s *Store) keysOf(id ports.IdentityID) map[string]storedKey {
	keys, ok := s.keys[id]
	if !ok {
		keys = make(map[string]storedKey)
		s.keys[id] = keys
	}
	return keys
}

// DocumentGet implements ports.StateStorage.
func (s *Store) DocumentGet(_ context.Context, id ports.IdentityID) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrIdentityNotFound, id)
	}
	return doc.Clone(), nil
}

// DocumentSet implements ports.StateStorage.
func (s *Store) DocumentSet(_ context.Context, id ports.IdentityID, doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ports.ErrStorage)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[id] = doc.Clone()
	return nil
}

// ChainStateGet implements ports.StateStorage.
func (s *Store) ChainStateGet(_ context.Context, id ports.IdentityID) (domain.ChainState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[id]
	if !ok {
		return domain.ChainState{}, fmt.Errorf("%w: %s", ports.ErrIdentityNotFound, id)
	}
	return state, nil
}

// ChainStateSet implements ports.StateStorage.
func (s *Store) ChainStateSet(_ context.Context, id ports.IdentityID, state domain.ChainState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
	return nil
}

// IndexGet implements ports.StateStorage.
func (s *Store) IndexGet(_ context.Context, did domain.DID) (ports.IdentityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.index[did]
	if !ok {
		return ports.IdentityID{}, fmt.Errorf("%w: %s", ports.ErrIdentityNotFound, did)
	}
	return id, nil
}

// IndexSet implements ports.StateStorage.
func (s *Store) IndexSet(_ context.Context, did domain.DID, id ports.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[did] = id
	return nil
}

// Index implements ports.StateStorage.
func (s *Store) Index(_ context.Context) ([]ports.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]ports.IndexEntry, 0, len(s.index))
	for did, id := range s.index {
		entries = append(entries, ports.IndexEntry{DID: did, ID: id})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DID < entries[j].DID })
	return entries, nil
}

// Purge implements ports.StateStorage.
func (s *Store) Purge(_ context.Context, id ports.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
	delete(s.documents, id)
	delete(s.states, id)
	for did, indexed := range s.index {
		if indexed == id {
			delete(s.index, did)
		}
	}
	return nil
}

// Flush writes the snapshot file, if any. The file is replaced atomically.
func (s *Store) Flush(_ context.Context) error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	data, err := json.MarshalIndent(takeSnapshot(s), "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", ports.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write snapshot: %v", ports.ErrStorage, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ports.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace snapshot: %v", ports.ErrStorage, err)
	}
	return nil
}

var _ ports.Storage = (*Store)(nil)
