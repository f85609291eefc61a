package ports

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/signing"
)

// IdentityID is the storage-internal id of an identity. It is assigned before
// the genesis key exists, so keys can be stored before the DID is known.
type IdentityID ulid.ULID

// NewIdentityID returns a fresh, time-ordered id.
func NewIdentityID() IdentityID {
	return IdentityID(ulid.Make())
}

// ParseIdentityID parses the string form of an id.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := ulid.Parse(s)
	if err != nil {
		return IdentityID{}, fmt.Errorf("invalid identity id %q: %w", s, err)
	}
	return IdentityID(u), nil
}

func (id IdentityID) String() string {
	return ulid.ULID(id).String()
}

// MarshalText implements encoding.TextMarshaler.
func (id IdentityID) MarshalText() ([]byte, error) {
	return ulid.ULID(id).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *IdentityID) UnmarshalText(text []byte) error {
	return (*ulid.ULID)(id).UnmarshalText(text)
}

// IndexEntry pairs a DID with its identity id.
type IndexEntry struct {
	DID domain.DID `json:"did"`
	ID  IdentityID `json:"id"`
}

// KeyLocation addresses a stored key by key type, method fragment and a hash
// of the public key. A location with an empty KeyHash is temporary: keys are
// generated there and moved once their public key is known.
type KeyLocation struct {
	KeyType  signing.KeyType `json:"keyType"`
	Fragment string          `json:"fragment"`
	KeyHash  string          `json:"keyHash,omitempty"`
}

// NewKeyLocation builds the final location of a key.
func NewKeyLocation(kt signing.KeyType, fragment string, public []byte) KeyLocation {
	return KeyLocation{KeyType: kt, Fragment: fragment, KeyHash: signing.KeyHash(public)}
}

// TemporaryKeyLocation builds the location a key is generated at.
func TemporaryKeyLocation(kt signing.KeyType, fragment string) KeyLocation {
	return KeyLocation{KeyType: kt, Fragment: fragment}
}

// IsTemporary reports whether the location has no key hash yet.
func (l KeyLocation) IsTemporary() bool {
	return l.KeyHash == ""
}

// String returns "fragment:keytype:hash", used as a storage key.
func (l KeyLocation) String() string {
	return l.Fragment + ":" + string(l.KeyType) + ":" + l.KeyHash
}
