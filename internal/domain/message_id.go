package domain

import (
	"encoding/hex"
	"fmt"
)

// MessageIDLength is the size in bytes of a ledger message identifier.
const MessageIDLength = 32

// MessageID is an opaque, fixed-size content identifier of a published ledger
// message (an integration document or a diff).
//
// The zero value is the null sentinel: "not yet published". Use IsNull to test
// for it instead of comparing against a literal.
//
// MessageID is a comparable value type; it can be used as a map key and
// compared with ==.
type MessageID [MessageIDLength]byte

// NullMessageID is the sentinel for an unpublished position.
var NullMessageID MessageID

// MessageIDFromBytes copies b into a MessageID.
// Returns ErrInvalidMessageID if b is not exactly MessageIDLength bytes.
func MessageIDFromBytes(b []byte) (MessageID, error) {
	var id MessageID
	if len(b) != MessageIDLength {
		return id, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidMessageID, MessageIDLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ParseMessageID decodes the lowercase hex form produced by String.
// The empty string decodes to NullMessageID.
func ParseMessageID(s string) (MessageID, error) {
	if s == "" {
		return NullMessageID, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return NullMessageID, fmt.Errorf("%w: %v", ErrInvalidMessageID, err)
	}
	return MessageIDFromBytes(b)
}

// IsNull reports whether the id is the null sentinel.
func (id MessageID) IsNull() bool {
	return id == NullMessageID
}

// Bytes returns a copy of the raw identifier bytes.
func (id MessageID) Bytes() []byte {
	out := make([]byte, MessageIDLength)
	copy(out, id[:])
	return out
}

// String returns the lowercase hex encoding, or "" for the null sentinel.
func (id MessageID) String() string {
	if id.IsNull() {
		return ""
	}
	return hex.EncodeToString(id[:])
}

// MarshalText encodes the id as hex so it round-trips through JSON and YAML.
func (id MessageID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes the hex form written by MarshalText.
func (id *MessageID) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
