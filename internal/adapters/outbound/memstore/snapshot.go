package memstore

import (
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/ports"
)

// snapshot is the file format of a flushed store. Identity ids encode as map
// keys through their text form.
type snapshot struct {
	Version   int                                    `json:"version"`
	Keys      map[ports.IdentityID][]storedKey       `json:"keys"`
	Documents map[ports.IdentityID]*domain.Document  `json:"documents"`
	States    map[ports.IdentityID]domain.ChainState `json:"states"`
	Index     map[domain.DID]ports.IdentityID        `json:"index"`
}

const snapshotVersion = 1

// takeSnapshot copies s. Callers hold at least the read lock.
func takeSnapshot(s *Store) snapshot {
	snap := snapshot{
		Version:   snapshotVersion,
		Keys:      make(map[ports.IdentityID][]storedKey, len(s.keys)),
		Documents: make(map[ports.IdentityID]*domain.Document, len(s.documents)),
		States:    make(map[ports.IdentityID]domain.ChainState, len(s.states)),
		Index:     make(map[domain.DID]ports.IdentityID, len(s.index)),
	}
	for id, keys := range s.keys {
		for _, k := range keys {
			snap.Keys[id] = append(snap.Keys[id], k)
		}
	}
	for id, doc := range s.documents {
		snap.Documents[id] = doc.Clone()
	}
	for id, state := range s.states {
		snap.States[id] = state
	}
	for did, id := range s.index {
		snap.Index[did] = id
	}
	return snap
}

func (snap snapshot) restore(s *Store) {
	for id, keys := range snap.Keys {
		m := s.keysOf(id)
		for _, k := range keys {
			m[k.Location.String()] = k
		}
	}
	for id, doc := range snap.Documents {
		if doc != nil {
			s.documents[id] = doc
		}
	}
	for id, state := range snap.States {
		s.states[id] = state
	}
	for did, id := range snap.Index {
		s.index[did] = id
	}
}
