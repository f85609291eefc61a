package signing_test

import (
	"context"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/signing"
	"github.com/sufield/didchain/internal/testhelpers"
)

func TestDeriveDID_Deterministic(t *testing.T) {
	t.Parallel()

	key := testhelpers.NewKey(t)
	a := signing.DeriveDID(key.PublicKey())
	b := signing.DeriveDID(key.PublicKey())

	assert.Equal(t, a, b)
	_, err := domain.ParseDID(string(a))
	require.NoError(t, err)

	other := testhelpers.NewKey(t)
	assert.NotEqual(t, a, signing.DeriveDID(other.PublicKey()))
}

func TestVerifyDIDBinding(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	method, err := id.Genesis.ResolveMethod(id.MethodID)
	require.NoError(t, err)

	require.NoError(t, signing.VerifyDIDBinding(id.DID, method))

	stranger := testhelpers.NewIdentity(t)
	err = signing.VerifyDIDBinding(stranger.DID, method)
	assert.ErrorIs(t, err, domain.ErrInvalidGenesis)
	assert.ErrorIs(t, err, domain.ErrChain)
}

func TestPublicKeyEncoding_RoundTrip(t *testing.T) {
	t.Parallel()

	property := func(b []byte) bool {
		decoded, err := signing.DecodePublicKey(signing.EncodePublicKey(b))
		return err == nil && string(decoded) == string(b)
	}
	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 500}))

	_, err := signing.DecodePublicKey("zabc")
	assert.ErrorIs(t, err, signing.ErrInvalidKey)
	_, err = signing.DecodePublicKey("fzz")
	assert.ErrorIs(t, err, signing.ErrInvalidKey)
}

func TestKeySigner_SignVerify(t *testing.T) {
	t.Parallel()

	key := testhelpers.NewKey(t)
	sig, err := key.Sign(context.Background(), []byte("payload"))
	require.NoError(t, err)

	assert.True(t, signing.Verify(key.KeyType(), key.PublicKey(), []byte("payload"), sig))
	assert.False(t, signing.Verify(key.KeyType(), key.PublicKey(), []byte("other"), sig))
	assert.False(t, signing.Verify(key.KeyType(), key.PublicKey()[:5], []byte("payload"), sig))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = key.Sign(ctx, []byte("payload"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseKeyType(t *testing.T) {
	t.Parallel()

	kt, err := signing.ParseKeyType("ed25519")
	require.NoError(t, err)
	assert.Equal(t, signing.KeyTypeEd25519, kt)
	assert.Equal(t, domain.MethodTypeEd25519, kt.MethodType())

	_, err = signing.ParseKeyType("rsa")
	assert.ErrorIs(t, err, signing.ErrUnsupportedKeyType)

	_, err = signing.KeyTypeOf(domain.MethodTypeX25519)
	assert.ErrorIs(t, err, signing.ErrUnsupportedKeyType)
}

func TestDocumentProof(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)

	t.Run("self signed genesis verifies", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, signing.VerifyDocument(id.Genesis, id.Genesis))
		assert.Equal(t, domain.ProofTypeJWS, id.Genesis.Proof.Type)
		assert.Equal(t, id.MethodID, id.Genesis.Proof.VerificationMethod)
	})

	t.Run("tampered content fails", func(t *testing.T) {
		t.Parallel()
		doc := id.Genesis.Clone()
		doc.AlsoKnownAs = []string{"https://example.org"}
		err := signing.VerifyDocument(doc, id.Genesis)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("missing proof fails", func(t *testing.T) {
		t.Parallel()
		err := signing.VerifyDocument(id.Genesis.Unsigned(), id.Genesis)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("signer without the method fails", func(t *testing.T) {
		t.Parallel()
		other := testhelpers.NewIdentity(t)
		err := signing.VerifyDocument(id.Genesis, other.Genesis)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("wrong key under the right method id fails", func(t *testing.T) {
		t.Parallel()
		doc := id.Genesis.Unsigned()
		require.NoError(t, signing.SignDocument(context.Background(), doc, id.MethodID, testhelpers.NewKey(t)))
		err := signing.VerifyDocument(doc, id.Genesis)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})
}

func TestDiffProof(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	diff := &domain.DiffMessage{
		DID:               id.DID,
		Diff:              []byte(`{"alsoKnownAs":["https://example.org"]}`),
		PreviousMessageID: testhelpers.MessageID(1),
	}
	id.SignDiff(t, diff)

	require.NoError(t, signing.VerifyDiff(diff, id.Genesis))

	// The ledger id is not covered by the proof.
	require.NoError(t, signing.VerifyDiff(diff.WithMessageID(testhelpers.MessageID(9)), id.Genesis))

	relinked := diff.Clone()
	relinked.PreviousMessageID = testhelpers.MessageID(2)
	assert.ErrorIs(t, signing.VerifyDiff(relinked, id.Genesis), domain.ErrInvalidSignature)
}
