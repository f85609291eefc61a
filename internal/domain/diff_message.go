package domain

import (
	"encoding/json"
	"fmt"
)

// DiffMessage is a signed patch layered on top of the latest integration
// document.
//
// Diff holds an RFC 7386 JSON merge patch of the unsigned document.
// PreviousMessageID is the chain position the diff extends: the previous diff,
// or the integration message for the first diff.
// MessageID is assigned by the ledger on publication and is not covered by
// the proof.
//
// A DiffMessage is immutable once constructed.
type DiffMessage struct {
	DID               DID             `json:"id"`
	Diff              json.RawMessage `json:"diff"`
	PreviousMessageID MessageID       `json:"previousMessageId"`
	MessageID         MessageID       `json:"-"`
	Proof             *Proof          `json:"proof,omitempty"`
}

// Clone returns a deep copy.
func (m *DiffMessage) Clone() *DiffMessage {
	if m == nil {
		return nil
	}
	out := *m
	out.Diff = append(json.RawMessage(nil), m.Diff...)
	out.Proof = m.Proof.Clone()
	return &out
}

// WithMessageID returns a copy carrying the ledger-assigned id.
func (m *DiffMessage) WithMessageID(id MessageID) *DiffMessage {
	out := m.Clone()
	out.MessageID = id
	return out
}

// CanonicalJSON returns the bytes covered by the proof: the message without
// its proof and without its ledger id.
func (m *DiffMessage) CanonicalJSON() ([]byte, error) {
	unsigned := m.Clone()
	unsigned.Proof = nil
	return json.Marshal(unsigned)
}

// Validate checks the message carries an id and a patch.
func (m *DiffMessage) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: diff message is nil", ErrInvalidDocument)
	}
	if _, err := ParseDID(string(m.DID)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(m.Diff) == 0 || !json.Valid(m.Diff) {
		return fmt.Errorf("%w: diff patch is not valid JSON", ErrInvalidDocument)
	}
	return nil
}
