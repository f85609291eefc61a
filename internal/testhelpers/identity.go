package testhelpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/signing"
)

// GenesisFragment is the fragment of the signing method of test identities.
const GenesisFragment = "sign-0"

// Identity is a self-certifying test identity: a DID derived from its key,
// and a signed genesis document.
type Identity struct {
	DID      domain.DID
	Signer   *signing.KeySigner
	MethodID string
	Genesis  *domain.Document
}

// NewKey generates an in-memory Ed25519 signer.
func NewKey(t testing.TB) *signing.KeySigner {
	t.Helper()

	_, private, err := signing.GenerateKey(signing.KeyTypeEd25519)
	require.NoError(t, err)
	s, err := signing.NewKeySigner(signing.KeyTypeEd25519, private)
	require.NoError(t, err)
	return s
}

// NewIdentity creates an identity with a signed genesis document.
func NewIdentity(t testing.TB) *Identity {
	t.Helper()

	key := NewKey(t)
	did := signing.DeriveDID(key.PublicKey())
	method := signing.NewMethod(did, GenesisFragment, key.KeyType(), key.PublicKey())

	doc := domain.NewDocument(did, method, domain.Timestamp())
	id := &Identity{DID: did, Signer: key, MethodID: method.ID, Genesis: doc}
	id.Sign(t, doc)
	return id
}

// Sign signs doc with the identity's genesis key.
func (id *Identity) Sign(t testing.TB, doc *domain.Document) {
	t.Helper()
	require.NoError(t, signing.SignDocument(context.Background(), doc, id.MethodID, id.Signer))
}

// SignDiff signs diff with the identity's genesis key.
func (id *Identity) SignDiff(t testing.TB, diff *domain.DiffMessage) {
	t.Helper()
	require.NoError(t, signing.SignDiff(context.Background(), diff, id.MethodID, id.Signer))
}

// MessageID returns a deterministic, non-null message id for tests.
func MessageID(seed byte) domain.MessageID {
	var id domain.MessageID
	for i := range id {
		id[i] = seed
	}
	id[0] = seed | 0x80
	return id
}
