package chain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/didchain/internal/chain"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/signing"
	"github.com/sufield/didchain/internal/testhelpers"
)

func genesisEntry(id *testhelpers.Identity) *domain.ResolvedDocument {
	return &domain.ResolvedDocument{
		Document:             id.Genesis.Clone(),
		IntegrationMessageID: testhelpers.MessageID(1),
	}
}

// nextIntegration builds an entry following prev, signed by id.
func nextIntegration(t *testing.T, id *testhelpers.Identity, prev *domain.ResolvedDocument, mutate func(*domain.Document), msg byte) *domain.ResolvedDocument {
	t.Helper()
	doc := prev.Document.Unsigned()
	mutate(doc)
	doc.Metadata.PreviousMessageID = prev.IntegrationMessageID
	id.Sign(t, doc)
	return &domain.ResolvedDocument{Document: doc, IntegrationMessageID: testhelpers.MessageID(msg)}
}

// signedDiff builds a diff from base to updated, signed by id and stamped
// with a ledger id.
func signedDiff(t *testing.T, id *testhelpers.Identity, base, updated *domain.Document, prev domain.MessageID, msg byte) *domain.DiffMessage {
	t.Helper()
	diff, err := chain.NewDiffMessage(base, updated, prev)
	require.NoError(t, err)
	id.SignDiff(t, diff)
	return diff.WithMessageID(testhelpers.MessageID(msg))
}

func withService(doc *domain.Document, fragment string) *domain.Document {
	out := doc.Clone()
	if err := out.InsertService(domain.Service{
		ID:              out.ID.Join(fragment),
		Type:            "LinkedDomains",
		ServiceEndpoint: "https://" + fragment + ".example.org",
	}); err != nil {
		panic(err)
	}
	return out
}

func TestIntegrationChain_Genesis(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)

	t.Run("self signed genesis is accepted", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewIntegrationChain(genesisEntry(id))
		require.NoError(t, err)
		assert.Equal(t, testhelpers.MessageID(1), c.CurrentMessageID())
		assert.True(t, c.Current().Document.EqualContent(id.Genesis))
	})

	t.Run("genesis with previous id is rejected", func(t *testing.T) {
		t.Parallel()
		entry := genesisEntry(id)
		entry.Document.Metadata.PreviousMessageID = testhelpers.MessageID(7)
		id.Sign(t, entry.Document)

		_, err := chain.NewIntegrationChain(entry)
		assert.ErrorIs(t, err, domain.ErrInvalidPreviousMessageID)
	})

	t.Run("genesis signed by a foreign key is rejected", func(t *testing.T) {
		t.Parallel()
		entry := genesisEntry(id)
		require.NoError(t, signing.SignDocument(t.Context(), entry.Document, id.MethodID, testhelpers.NewKey(t)))

		_, err := chain.NewIntegrationChain(entry)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("genesis whose DID is not derived from its key is rejected", func(t *testing.T) {
		t.Parallel()
		// Same key, but claiming another identity's DID.
		other := testhelpers.NewIdentity(t)
		method := signing.NewMethod(other.DID, testhelpers.GenesisFragment, id.Signer.KeyType(), id.Signer.PublicKey())
		doc := domain.NewDocument(other.DID, method, domain.Timestamp())
		require.NoError(t, signing.SignDocument(t.Context(), doc, method.ID, id.Signer))

		_, err := chain.NewIntegrationChain(&domain.ResolvedDocument{Document: doc, IntegrationMessageID: testhelpers.MessageID(1)})
		assert.ErrorIs(t, err, domain.ErrInvalidGenesis)
		assert.ErrorIs(t, err, domain.ErrChain)
	})

	t.Run("entry without message id is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := chain.NewIntegrationChain(&domain.ResolvedDocument{Document: id.Genesis.Clone()})
		assert.ErrorIs(t, err, domain.ErrInvalidDocument)
	})
}

func TestIntegrationChain_TryPush(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	genesis := genesisEntry(id)

	t.Run("linked entry signed by previous entry is accepted", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewIntegrationChain(genesis)
		require.NoError(t, err)

		next := nextIntegration(t, id, genesis, func(d *domain.Document) {
			d.AlsoKnownAs = []string{"https://example.org"}
		}, 2)
		require.NoError(t, c.TryPush(next))
		assert.Equal(t, 2, c.Len())
		assert.Equal(t, testhelpers.MessageID(2), c.CurrentMessageID())
	})

	t.Run("broken linkage is rejected and chain unchanged", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewIntegrationChain(genesis)
		require.NoError(t, err)

		next := nextIntegration(t, id, genesis, func(*domain.Document) {}, 2)
		next.Document.Metadata.PreviousMessageID = testhelpers.MessageID(9)
		id.Sign(t, next.Document)

		err = c.TryPush(next)
		assert.ErrorIs(t, err, domain.ErrInvalidPreviousMessageID)
		assert.Equal(t, 1, c.Len())
		assert.Equal(t, testhelpers.MessageID(1), c.CurrentMessageID())
	})

	t.Run("entry signed by a key only present in itself is rejected", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewIntegrationChain(genesis)
		require.NoError(t, err)

		rotated := testhelpers.NewKey(t)
		method := signing.NewMethod(id.DID, "sign-1", rotated.KeyType(), rotated.PublicKey())
		doc := genesis.Document.Unsigned()
		require.NoError(t, doc.InsertMethod(method, domain.CapabilityInvocation))
		doc.Metadata.PreviousMessageID = genesis.IntegrationMessageID
		require.NoError(t, signing.SignDocument(t.Context(), doc, method.ID, rotated))

		err = c.TryPush(&domain.ResolvedDocument{Document: doc, IntegrationMessageID: testhelpers.MessageID(2)})
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("key rotation signed by the old key is accepted", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewIntegrationChain(genesis)
		require.NoError(t, err)

		rotated := testhelpers.NewKey(t)
		method := signing.NewMethod(id.DID, "sign-1", rotated.KeyType(), rotated.PublicKey())
		next := nextIntegration(t, id, genesis, func(d *domain.Document) {
			require.NoError(t, d.InsertMethod(method, domain.CapabilityInvocation))
		}, 2)
		require.NoError(t, c.TryPush(next))

		// The new key may now sign the following entry.
		doc := next.Document.Unsigned()
		doc.AlsoKnownAs = []string{"https://rotated.example.org"}
		doc.Metadata.PreviousMessageID = next.IntegrationMessageID
		require.NoError(t, signing.SignDocument(t.Context(), doc, method.ID, rotated))
		require.NoError(t, c.TryPush(&domain.ResolvedDocument{Document: doc, IntegrationMessageID: testhelpers.MessageID(3)}))
		assert.Equal(t, 3, c.Len())
	})

	t.Run("entry for another DID is rejected", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewIntegrationChain(genesis)
		require.NoError(t, err)

		other := testhelpers.NewIdentity(t)
		doc := other.Genesis.Unsigned()
		doc.Metadata.PreviousMessageID = genesis.IntegrationMessageID
		other.Sign(t, doc)

		err = c.TryPush(&domain.ResolvedDocument{Document: doc, IntegrationMessageID: testhelpers.MessageID(2)})
		assert.Error(t, err)
		assert.Equal(t, 1, c.Len())
	})
}

func TestDiffChain_TryPushAndMerge(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	base := genesisEntry(id)

	t.Run("non signing change merges", func(t *testing.T) {
		t.Parallel()
		var dc chain.DiffChain
		updated := withService(base.Document, "website")
		diff := signedDiff(t, id, base.Document, updated, base.IntegrationMessageID, 2)

		merged, err := dc.TryPushAndMerge(diff, base)
		require.NoError(t, err)
		assert.True(t, merged.Document.EqualContent(updated))
		assert.Equal(t, base.IntegrationMessageID, merged.IntegrationMessageID)
		assert.Equal(t, diff.MessageID, merged.DiffMessageID)
		assert.Equal(t, base.Document.Proof, merged.Document.Proof)
		assert.Equal(t, diff.MessageID, dc.CurrentMessageID())
		assert.False(t, dc.IsEmpty())
	})

	t.Run("second diff links to the first", func(t *testing.T) {
		t.Parallel()
		var dc chain.DiffChain
		first := withService(base.Document, "a")
		d1 := signedDiff(t, id, base.Document, first, base.IntegrationMessageID, 2)
		merged, err := dc.TryPushAndMerge(d1, base)
		require.NoError(t, err)

		second := withService(first, "b")
		stale := signedDiff(t, id, first, second, base.IntegrationMessageID, 3)
		_, err = dc.TryPushAndMerge(stale, merged)
		assert.ErrorIs(t, err, domain.ErrInvalidPreviousMessageID)
		assert.Equal(t, 1, dc.Len())

		d2 := signedDiff(t, id, first, second, d1.MessageID, 3)
		merged, err = dc.TryPushAndMerge(d2, merged)
		require.NoError(t, err)
		assert.True(t, merged.Document.EqualContent(second))
		assert.Equal(t, 2, dc.Len())
	})

	t.Run("unsigned diff is rejected", func(t *testing.T) {
		t.Parallel()
		var dc chain.DiffChain
		diff, err := chain.NewDiffMessage(base.Document, withService(base.Document, "x"), base.IntegrationMessageID)
		require.NoError(t, err)

		_, err = dc.TryPushAndMerge(diff.WithMessageID(testhelpers.MessageID(2)), base)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		assert.True(t, dc.IsEmpty())
	})

	t.Run("clearing capability invocation is rejected", func(t *testing.T) {
		t.Parallel()
		var dc chain.DiffChain
		diff := &domain.DiffMessage{
			DID:               id.DID,
			Diff:              json.RawMessage(`{"capabilityInvocation":null}`),
			PreviousMessageID: base.IntegrationMessageID,
		}
		id.SignDiff(t, diff)

		_, err := dc.TryPushAndMerge(diff.WithMessageID(testhelpers.MessageID(2)), base)
		assert.ErrorIs(t, err, domain.ErrDiffAltersSigningMethods)
		assert.ErrorIs(t, err, domain.ErrChain)
		assert.True(t, dc.IsEmpty())
		assert.True(t, dc.CurrentMessageID().IsNull())
	})

	t.Run("controller change is rejected", func(t *testing.T) {
		t.Parallel()
		var dc chain.DiffChain
		other := testhelpers.NewIdentity(t)
		updated := base.Document.Clone()
		updated.Controller = []domain.DID{other.DID}
		diff := signedDiff(t, id, base.Document, updated, base.IntegrationMessageID, 2)

		_, err := dc.TryPushAndMerge(diff, base)
		assert.ErrorIs(t, err, domain.ErrDiffAltersSigningMethods)
	})

	t.Run("relinking the integration document is rejected", func(t *testing.T) {
		t.Parallel()
		var dc chain.DiffChain
		updated := base.Document.Clone()
		updated.Metadata.PreviousMessageID = testhelpers.MessageID(5)
		diff := signedDiff(t, id, base.Document, updated, base.IntegrationMessageID, 2)

		_, err := dc.TryPushAndMerge(diff, base)
		assert.ErrorIs(t, err, domain.ErrInvalidPreviousMessageID)
	})
}

func TestDiffChain_PropertyValuesSurviveFold(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	base := genesisEntry(id)
	withProfile := base.Document.Clone()
	require.NoError(t, withProfile.SetProperty("profile", map[string]any{"name": "x", "nick": "y"}))

	tests := []struct {
		name  string
		from  *domain.Document
		key   string
		value any
	}{
		{"nested object", base.Document, "profile", map[string]any{"name": "x", "tags": []any{"a", "b"}}},
		{"objects inside arrays", base.Document, "keys", []any{map[string]any{"k": 1}, map[string]any{}}},
		{"empty object", base.Document, "empty", map[string]any{}},
		{"nested key removed", withProfile, "profile", map[string]any{"name": "x"}},
		{"property removed", withProfile, "profile", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			updated := tt.from.Clone()
			require.NoError(t, updated.SetProperty(tt.key, tt.value))

			var dc chain.DiffChain
			diff := signedDiff(t, id, tt.from, updated, base.IntegrationMessageID, 2)
			merged, err := dc.TryPushAndMerge(diff, &domain.ResolvedDocument{
				Document:             tt.from,
				IntegrationMessageID: base.IntegrationMessageID,
			})
			require.NoError(t, err)
			assert.True(t, merged.Document.EqualContent(updated))
		})
	}

	// a null the merge patch would drop never gets into a document
	err := base.Document.Clone().SetProperty("profile", map[string]any{"nick": nil, "name": "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestCheckValidAddition(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	key := testhelpers.NewKey(t)
	extra := signing.NewMethod(id.DID, "sign-1", key.KeyType(), key.PublicKey())

	tests := []struct {
		name    string
		mutate  func(t *testing.T, d *domain.Document)
		wantErr bool
	}{
		{
			name:   "service added",
			mutate: func(t *testing.T, d *domain.Document) { *d = *withService(d, "svc") },
		},
		{
			name: "authentication method added",
			mutate: func(t *testing.T, d *domain.Document) {
				require.NoError(t, d.InsertMethod(extra, domain.Authentication))
			},
		},
		{
			name: "capability invocation method added",
			mutate: func(t *testing.T, d *domain.Document) {
				require.NoError(t, d.InsertMethod(extra, domain.CapabilityInvocation))
			},
			wantErr: true,
		},
		{
			name: "capability invocation key replaced",
			mutate: func(t *testing.T, d *domain.Document) {
				m := *d.CapabilityInvocation[0].Embedded
				m.PublicKeyMultibase = extra.PublicKeyMultibase
				d.CapabilityInvocation = []domain.MethodRef{domain.EmbedMethod(m)}
			},
			wantErr: true,
		},
		{
			name: "controller added",
			mutate: func(t *testing.T, d *domain.Document) {
				d.Controller = []domain.DID{testhelpers.NewIdentity(t).DID}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			merged := id.Genesis.Clone()
			tt.mutate(t, merged)

			err := chain.CheckValidAddition(id.Genesis, merged)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrDiffAltersSigningMethods)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocumentChain(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	genesis := genesisEntry(id)

	t.Run("integration clears diffs", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewDocumentChain(genesis)
		require.NoError(t, err)

		updated := withService(genesis.Document, "svc")
		require.NoError(t, c.TryPushDiff(signedDiff(t, id, genesis.Document, updated, c.DiffMessageID(), 2)))
		assert.True(t, c.HasDiffs())
		assert.Equal(t, testhelpers.MessageID(2), c.DiffMessageID())
		assert.Equal(t, testhelpers.MessageID(1), c.IntegrationMessageID())

		next := nextIntegration(t, id, &domain.ResolvedDocument{
			Document:             c.Current().Document,
			IntegrationMessageID: c.IntegrationMessageID(),
		}, func(*domain.Document) {}, 3)
		require.NoError(t, c.TryPushIntegration(next))

		assert.False(t, c.HasDiffs())
		assert.Equal(t, c.IntegrationMessageID(), c.DiffMessageID())
		assert.Equal(t, domain.ChainState{LastIntegrationMessageID: testhelpers.MessageID(3)}, c.Position())
		assert.True(t, c.Current().Document.EqualContent(next.Document))
	})

	t.Run("fold is deterministic", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewDocumentChain(genesis)
		require.NoError(t, err)

		prev := genesis.Document
		for i, fragment := range []string{"a", "b", "c"} {
			updated := withService(prev, fragment)
			require.NoError(t, c.TryPushDiff(signedDiff(t, id, prev, updated, c.DiffMessageID(), byte(2+i))))
			prev = updated
		}

		first, err := c.Fold()
		require.NoError(t, err)
		second, err := c.Fold()
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.True(t, first.Document.EqualContent(prev))
		assert.Equal(t, testhelpers.MessageID(4), first.DiffMessageID)

		// Mutating a returned copy does not leak into the chain.
		first.Document.Service = nil
		assert.True(t, c.Current().Document.EqualContent(prev))
	})

	t.Run("rejected diff leaves the fold untouched", func(t *testing.T) {
		t.Parallel()
		c, err := chain.NewDocumentChain(genesis)
		require.NoError(t, err)
		before := c.Current()

		diff := &domain.DiffMessage{
			DID:               id.DID,
			Diff:              json.RawMessage(`{"capabilityInvocation":null}`),
			PreviousMessageID: c.DiffMessageID(),
		}
		id.SignDiff(t, diff)
		err = c.TryPushDiff(diff.WithMessageID(testhelpers.MessageID(2)))
		assert.ErrorIs(t, err, domain.ErrDiffAltersSigningMethods)
		assert.Equal(t, before, c.Current())
		assert.False(t, c.HasDiffs())
	})
}

func TestBuild(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	genesis := genesisEntry(id)
	second := nextIntegration(t, id, genesis, func(d *domain.Document) {
		d.AlsoKnownAs = []string{"https://example.org"}
	}, 2)
	withSvc := withService(second.Document, "svc")
	diff := signedDiff(t, id, second.Document, withSvc, second.IntegrationMessageID, 3)

	t.Run("out of order messages with spam", func(t *testing.T) {
		t.Parallel()
		spam := testhelpers.NewIdentity(t)
		forged := nextIntegration(t, spam, genesis, func(*domain.Document) {}, 9)

		c, err := chain.Build(id.DID,
			[]*domain.ResolvedDocument{forged, second, genesisEntry(spam), genesis},
			[]*domain.DiffMessage{diff})
		require.NoError(t, err)
		assert.Equal(t, second.IntegrationMessageID, c.IntegrationMessageID())
		assert.Equal(t, diff.MessageID, c.DiffMessageID())
		assert.True(t, c.Current().Document.EqualContent(withSvc))
		assert.Len(t, c.Integrations(), 2)
		assert.Len(t, c.Diffs(), 1)
	})

	t.Run("first valid message wins", func(t *testing.T) {
		t.Parallel()
		competing := nextIntegration(t, id, genesis, func(d *domain.Document) {
			d.AlsoKnownAs = []string{"https://other.example.org"}
		}, 4)

		c, err := chain.Build(id.DID, []*domain.ResolvedDocument{genesis, second, competing}, nil)
		require.NoError(t, err)
		assert.Equal(t, second.IntegrationMessageID, c.IntegrationMessageID())
	})

	t.Run("no genesis", func(t *testing.T) {
		t.Parallel()
		_, err := chain.Build(id.DID, []*domain.ResolvedDocument{second}, nil)
		assert.ErrorIs(t, err, chain.ErrNoValidGenesis)
	})
}
