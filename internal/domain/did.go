package domain

import (
	"fmt"
	"strings"
)

// DIDMethod is the method name of identifiers managed by this module.
const DIDMethod = "chain"

// DIDPrefix is the scheme and method prefix of every DID.
const DIDPrefix = "did:" + DIDMethod + ":"

// DID is a decentralized identifier of the form did:chain:<tag>.
//
// The tag is derived from the genesis signing key by the signing package; the
// domain only checks the syntax.
type DID string

// ParseDID validates the syntax of s and returns it as a DID.
func ParseDID(s string) (DID, error) {
	if !strings.HasPrefix(s, DIDPrefix) {
		return "", fmt.Errorf("%w: %q does not start with %s", ErrInvalidDID, s, DIDPrefix)
	}
	tag := s[len(DIDPrefix):]
	if tag == "" {
		return "", fmt.Errorf("%w: %q has an empty tag", ErrInvalidDID, s)
	}
	if strings.ContainsAny(tag, ":#/?") {
		return "", fmt.Errorf("%w: %q has an invalid tag", ErrInvalidDID, s)
	}
	return DID(s), nil
}

// NewDIDFromTag builds a DID from a method-specific tag.
func NewDIDFromTag(tag string) DID {
	return DID(DIDPrefix + tag)
}

// String returns the DID string.
func (d DID) String() string {
	return string(d)
}

// Tag returns the method-specific identifier.
func (d DID) Tag() string {
	return strings.TrimPrefix(string(d), DIDPrefix)
}

// Join returns the DID URL addressing fragment within this DID's document.
func (d DID) Join(fragment string) string {
	return string(d) + "#" + strings.TrimPrefix(fragment, "#")
}

// Fragment extracts the fragment of a DID URL or relative reference.
//
// Accepted forms: "did:chain:abc#key-1", "#key-1", "key-1".
// A DID URL that addresses a different DID than owner is rejected.
func Fragment(owner DID, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrInvalidDIDURL)
	}
	i := strings.IndexByte(ref, '#')
	switch {
	case i < 0:
		return ref, nil
	case i == 0:
		if len(ref) == 1 {
			return "", fmt.Errorf("%w: empty fragment", ErrInvalidDIDURL)
		}
		return ref[1:], nil
	default:
		if owner != "" && DID(ref[:i]) != owner {
			return "", fmt.Errorf("%w: %q does not belong to %s", ErrInvalidDIDURL, ref, owner)
		}
		if i == len(ref)-1 {
			return "", fmt.Errorf("%w: empty fragment", ErrInvalidDIDURL)
		}
		return ref[i+1:], nil
	}
}
