package signing

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/sufield/didchain/internal/domain"
)

// Hash returns the blake2b-256 digest of data.
func Hash(data ...[]byte) [32]byte {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveDID derives the DID bound to a genesis public key.
func DeriveDID(public []byte) domain.DID {
	sum := blake2b.Sum256(public)
	return domain.NewDIDFromTag(hex.EncodeToString(sum[:]))
}

// KeyHash returns a short, stable name for a public key. Storage backends use
// it to address keys.
func KeyHash(public []byte) string {
	sum := blake2b.Sum256(public)
	return hex.EncodeToString(sum[:8])
}

// VerifyDIDBinding checks that did was derived from the key of m.
func VerifyDIDBinding(did domain.DID, m *domain.VerificationMethod) error {
	_, public, err := MethodPublicKey(m)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidGenesis, err)
	}
	if DeriveDID(public) != did {
		return fmt.Errorf("%w: %s is not derived from %s", domain.ErrInvalidGenesis, did, m.ID)
	}
	return nil
}
