package pgstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/didchain/internal/adapters/outbound/pgstore"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/ports"
	"github.com/sufield/didchain/internal/signing"
	"github.com/sufield/didchain/internal/testhelpers"
)

// TestStore runs against a real PostgreSQL server; it is skipped with -short
// or without Docker.
func TestStore(t *testing.T) {
	pg := testhelpers.SetupPostgresContainer(t)
	ctx := context.Background()

	store, err := pgstore.Open(ctx, pg.DSN)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	// Migrations are idempotent.
	again, err := pgstore.Open(ctx, pg.DSN)
	require.NoError(t, err)
	again.Close()

	t.Run("key lifecycle", func(t *testing.T) {
		id := ports.NewIdentityID()
		temp := ports.TemporaryKeyLocation(signing.KeyTypeEd25519, "sign-0")

		public, err := store.KeyGenerate(ctx, id, temp)
		require.NoError(t, err)
		_, err = store.KeyGenerate(ctx, id, temp)
		assert.ErrorIs(t, err, ports.ErrKeyExists)

		final := ports.NewKeyLocation(signing.KeyTypeEd25519, "sign-0", public)
		require.NoError(t, store.KeyMove(ctx, id, temp, final))
		assert.ErrorIs(t, store.KeyMove(ctx, id, temp, final), ports.ErrKeyExists)

		ok, err := store.KeyExists(ctx, id, temp)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.KeyPublic(ctx, id, final)
		require.NoError(t, err)
		assert.Equal(t, public, got)

		sig, err := store.KeySign(ctx, id, final, []byte("payload"))
		require.NoError(t, err)
		assert.True(t, signing.Verify(signing.KeyTypeEd25519, public, []byte("payload"), sig))

		// Keys are scoped to their identity.
		_, err = store.KeyPublic(ctx, ports.NewIdentityID(), final)
		assert.ErrorIs(t, err, ports.ErrKeyNotFound)

		require.NoError(t, store.KeyDelete(ctx, id, final))
		assert.ErrorIs(t, store.KeyDelete(ctx, id, final), ports.ErrKeyNotFound)
		assert.ErrorIs(t, store.KeyMove(ctx, id, final, temp), ports.ErrKeyNotFound)
	})

	t.Run("document and chain state", func(t *testing.T) {
		id := ports.NewIdentityID()
		ident := testhelpers.NewIdentity(t)

		_, err := store.DocumentGet(ctx, id)
		assert.ErrorIs(t, err, ports.ErrIdentityNotFound)
		_, err = store.ChainStateGet(ctx, id)
		assert.ErrorIs(t, err, ports.ErrIdentityNotFound)

		require.NoError(t, store.DocumentSet(ctx, id, ident.Genesis))
		doc, err := store.DocumentGet(ctx, id)
		require.NoError(t, err)
		assert.True(t, doc.EqualContent(ident.Genesis))

		// The stored proof still verifies after the JSONB round trip.
		require.NoError(t, signing.VerifyDocument(doc, doc))

		state := domain.ChainState{LastIntegrationMessageID: testhelpers.MessageID(1)}
		require.NoError(t, store.ChainStateSet(ctx, id, state))
		got, err := store.ChainStateGet(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, state, got)

		state.LastDiffMessageID = testhelpers.MessageID(2)
		require.NoError(t, store.ChainStateSet(ctx, id, state))
		got, err = store.ChainStateGet(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, state, got)
	})

	t.Run("index and purge", func(t *testing.T) {
		id := ports.NewIdentityID()
		ident := testhelpers.NewIdentity(t)

		_, err := store.IndexGet(ctx, ident.DID)
		assert.ErrorIs(t, err, ports.ErrIdentityNotFound)

		_, err = store.KeyGenerate(ctx, id, ports.TemporaryKeyLocation(signing.KeyTypeEd25519, "k"))
		require.NoError(t, err)
		require.NoError(t, store.DocumentSet(ctx, id, ident.Genesis))
		require.NoError(t, store.ChainStateSet(ctx, id, domain.ChainState{}))
		require.NoError(t, store.IndexSet(ctx, ident.DID, id))

		got, err := store.IndexGet(ctx, ident.DID)
		require.NoError(t, err)
		assert.Equal(t, id, got)

		entries, err := store.Index(ctx)
		require.NoError(t, err)
		assert.Contains(t, entries, ports.IndexEntry{DID: ident.DID, ID: id})

		require.NoError(t, store.Purge(ctx, id))
		_, err = store.IndexGet(ctx, ident.DID)
		assert.ErrorIs(t, err, ports.ErrIdentityNotFound)
		_, err = store.DocumentGet(ctx, id)
		assert.ErrorIs(t, err, ports.ErrIdentityNotFound)
		ok, err := store.KeyExists(ctx, id, ports.TemporaryKeyLocation(signing.KeyTypeEd25519, "k"))
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Flush(ctx))
	})
}

func TestOpen_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pgstore.Open(ctx, "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	assert.ErrorIs(t, err, ports.ErrStorage)
}
