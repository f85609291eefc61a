package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sufield/didchain/internal/domain"
)

// KeyType is the closed set of key algorithms. Every algorithm-specific
// branch in the module lives in this file.
type KeyType string

const (
	// KeyTypeEd25519 is an Ed25519 signing key.
	KeyTypeEd25519 KeyType = "ed25519"
)

// multibaseBase16 is the multibase prefix of lowercase hex.
const multibaseBase16 = "f"

var (
	// ErrUnsupportedKeyType indicates a key type outside the closed set
	ErrUnsupportedKeyType = errors.New("unsupported key type")

	// ErrInvalidKey indicates malformed key bytes or encoding
	ErrInvalidKey = errors.New("invalid key")
)

// ParseKeyType parses the string form of a key type.
func ParseKeyType(s string) (KeyType, error) {
	switch KeyType(s) {
	case KeyTypeEd25519:
		return KeyTypeEd25519, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKeyType, s)
}

// MethodType returns the verification method type that carries keys of kt.
func (kt KeyType) MethodType() domain.MethodType {
	switch kt {
	case KeyTypeEd25519:
		return domain.MethodTypeEd25519
	}
	return ""
}

// KeyTypeOf returns the key type of a method type. Methods whose keys cannot
// sign have no key type.
func KeyTypeOf(t domain.MethodType) (KeyType, error) {
	switch t {
	case domain.MethodTypeEd25519:
		return KeyTypeEd25519, nil
	}
	return "", fmt.Errorf("%w: method type %q cannot sign", ErrUnsupportedKeyType, t)
}

// GenerateKey creates a fresh key pair of type kt.
func GenerateKey(kt KeyType) (public, private []byte, err error) {
	switch kt {
	case KeyTypeEd25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate Ed25519 key pair: %w", err)
		}
		return pub, priv, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedKeyType, kt)
}

// Sign signs message with a raw private key. Only storage backends hold raw
// private keys; everything else signs through a Signer.
func Sign(kt KeyType, private, message []byte) ([]byte, error) {
	switch kt {
	case KeyTypeEd25519:
		if len(private) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKey, ed25519.PrivateKeySize, len(private))
		}
		return ed25519.Sign(ed25519.PrivateKey(private), message), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKeyType, kt)
}

// Verify checks a raw signature. It returns false for any malformed input.
func Verify(kt KeyType, public, message, signature []byte) bool {
	switch kt {
	case KeyTypeEd25519:
		if len(public) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(public), message, signature)
	}
	return false
}

// PublicFromPrivate recovers the public half of a private key.
func PublicFromPrivate(kt KeyType, private []byte) ([]byte, error) {
	switch kt {
	case KeyTypeEd25519:
		if len(private) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKey, ed25519.PrivateKeySize, len(private))
		}
		pub := ed25519.PrivateKey(private).Public().(ed25519.PublicKey)
		return []byte(pub), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKeyType, kt)
}

// EncodePublicKey encodes key material as multibase base16.
func EncodePublicKey(public []byte) string {
	return multibaseBase16 + hex.EncodeToString(public)
}

// DecodePublicKey decodes the multibase form written by EncodePublicKey.
func DecodePublicKey(s string) ([]byte, error) {
	if !strings.HasPrefix(s, multibaseBase16) {
		return nil, fmt.Errorf("%w: unsupported multibase prefix in %q", ErrInvalidKey, s)
	}
	b, err := hex.DecodeString(s[len(multibaseBase16):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return b, nil
}

// NewMethod builds a verification method for a public key.
func NewMethod(did domain.DID, fragment string, kt KeyType, public []byte) domain.VerificationMethod {
	return domain.VerificationMethod{
		ID:                 did.Join(fragment),
		Controller:         did,
		Type:               kt.MethodType(),
		PublicKeyMultibase: EncodePublicKey(public),
	}
}

// MethodPublicKey returns the key type and raw key of a signing-capable method.
func MethodPublicKey(m *domain.VerificationMethod) (KeyType, []byte, error) {
	kt, err := KeyTypeOf(m.Type)
	if err != nil {
		return "", nil, err
	}
	public, err := DecodePublicKey(m.PublicKeyMultibase)
	if err != nil {
		return "", nil, err
	}
	return kt, public, nil
}
