package signing

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// Signer produces signatures without exposing private key material.
// Storage backends hand out Signers bound to one stored key.
type Signer interface {
	KeyType() KeyType
	PublicKey() []byte
	Sign(ctx context.Context, data []byte) ([]byte, error)
}

// jwsAlgorithm maps a key type to its JWS algorithm.
func jwsAlgorithm(kt KeyType) (jose.SignatureAlgorithm, error) {
	switch kt {
	case KeyTypeEd25519:
		return jose.EdDSA, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKeyType, kt)
}

// jwsVerificationKey converts raw key material into the type go-jose expects.
func jwsVerificationKey(kt KeyType, public []byte) (any, error) {
	switch kt {
	case KeyTypeEd25519:
		if len(public) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, len(public))
		}
		return ed25519.PublicKey(public), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKeyType, kt)
}

// opaqueSigner adapts a Signer to go-jose. The context is captured because
// go-jose's signing callback has none.
type opaqueSigner struct {
	ctx    context.Context
	signer Signer
	alg    jose.SignatureAlgorithm
}

func (o opaqueSigner) Public() *jose.JSONWebKey {
	key, err := jwsVerificationKey(o.signer.KeyType(), o.signer.PublicKey())
	if err != nil {
		return nil
	}
	return &jose.JSONWebKey{Key: key, Algorithm: string(o.alg), Use: "sig"}
}

func (o opaqueSigner) Algs() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{o.alg}
}

func (o opaqueSigner) SignPayload(payload []byte, _ jose.SignatureAlgorithm) ([]byte, error) {
	return o.signer.Sign(o.ctx, payload)
}

// signDetached returns a detached compact JWS over payload.
func signDetached(ctx context.Context, s Signer, payload []byte) (string, error) {
	alg, err := jwsAlgorithm(s.KeyType())
	if err != nil {
		return "", err
	}
	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: alg,
		Key:       opaqueSigner{ctx: ctx, signer: s, alg: alg},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create JWS signer: %w", err)
	}
	obj, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return obj.DetachedCompactSerialize()
}

// verifyDetached checks a detached compact JWS over payload.
func verifyDetached(kt KeyType, public []byte, jws string, payload []byte) error {
	alg, err := jwsAlgorithm(kt)
	if err != nil {
		return err
	}
	key, err := jwsVerificationKey(kt, public)
	if err != nil {
		return err
	}
	obj, err := jose.ParseDetached(jws, payload, []jose.SignatureAlgorithm{alg})
	if err != nil {
		return fmt.Errorf("malformed JWS: %w", err)
	}
	if _, err := obj.Verify(key); err != nil {
		return fmt.Errorf("JWS verification failed: %w", err)
	}
	return nil
}
