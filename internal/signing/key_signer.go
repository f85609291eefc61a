package signing

import (
	"context"
)

// KeySigner is a Signer over a private key held in memory. Storage adapters
// return it after loading a key.
type KeySigner struct {
	keyType KeyType
	private []byte
	public  []byte
}

// NewKeySigner wraps a private key.
func NewKeySigner(kt KeyType, private []byte) (*KeySigner, error) {
	public, err := PublicFromPrivate(kt, private)
	if err != nil {
		return nil, err
	}
	return &KeySigner{
		keyType: kt,
		private: append([]byte(nil), private...),
		public:  public,
	}, nil
}

// KeyType returns the algorithm of the wrapped key.
func (s *KeySigner) KeyType() KeyType { return s.keyType }

// PublicKey returns a copy of the public key.
func (s *KeySigner) PublicKey() []byte { return append([]byte(nil), s.public...) }

// Sign signs data. ctx is honored only for cancellation before signing.
func (s *KeySigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Sign(s.keyType, s.private, data)
}
