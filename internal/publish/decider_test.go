package publish_test

import (
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/didchain/internal/chain"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/publish"
	"github.com/sufield/didchain/internal/signing"
	"github.com/sufield/didchain/internal/testhelpers"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	key := testhelpers.NewKey(t)
	extra := signing.NewMethod(id.DID, "key-1", key.KeyType(), key.PublicKey())

	tests := []struct {
		name     string
		mutate   func(t *testing.T, d *domain.Document)
		opts     publish.Options
		wantType publish.Type
		wantOK   bool
	}{
		{
			name:   "no change",
			mutate: func(*testing.T, *domain.Document) {},
		},
		{
			name:     "no change forced",
			mutate:   func(*testing.T, *domain.Document) {},
			opts:     publish.Options{ForceIntegration: true},
			wantType: publish.Integration,
			wantOK:   true,
		},
		{
			name:   "proof only change",
			mutate: func(_ *testing.T, d *domain.Document) { d.Proof = nil },
		},
		{
			name: "service added",
			mutate: func(t *testing.T, d *domain.Document) {
				require.NoError(t, d.InsertService(domain.Service{ID: d.ID.Join("web"), Type: "LinkedDomains", ServiceEndpoint: "https://example.org"}))
			},
			wantType: publish.Diff,
			wantOK:   true,
		},
		{
			name: "key agreement method added",
			mutate: func(t *testing.T, d *domain.Document) {
				require.NoError(t, d.InsertMethod(extra, domain.KeyAgreement))
			},
			wantType: publish.Diff,
			wantOK:   true,
		},
		{
			name: "also known as changed",
			mutate: func(_ *testing.T, d *domain.Document) {
				d.AlsoKnownAs = []string{"https://example.org"}
			},
			wantType: publish.Diff,
			wantOK:   true,
		},
		{
			name: "service added and forced",
			mutate: func(t *testing.T, d *domain.Document) {
				require.NoError(t, d.InsertService(domain.Service{ID: d.ID.Join("web"), Type: "LinkedDomains", ServiceEndpoint: "https://example.org"}))
			},
			opts:     publish.Options{ForceIntegration: true},
			wantType: publish.Integration,
			wantOK:   true,
		},
		{
			name: "capability invocation method added",
			mutate: func(t *testing.T, d *domain.Document) {
				require.NoError(t, d.InsertMethod(extra, domain.CapabilityInvocation))
			},
			wantType: publish.Integration,
			wantOK:   true,
		},
		{
			name: "existing method attached to capability invocation",
			mutate: func(t *testing.T, d *domain.Document) {
				require.NoError(t, d.InsertMethod(extra, domain.Authentication))
				require.NoError(t, d.AttachRelationship(extra.ID, domain.CapabilityInvocation))
			},
			wantType: publish.Integration,
			wantOK:   true,
		},
		{
			name: "controller set changed",
			mutate: func(_ *testing.T, d *domain.Document) {
				d.Controller = []domain.DID{signing.DeriveDID(key.PublicKey())}
			},
			wantType: publish.Integration,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			updated := id.Genesis.Clone()
			tt.mutate(t, updated)

			got, ok := publish.Classify(id.Genesis, updated, tt.opts)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantType, got)
			}
		})
	}
}

// TestClassify_AgreesWithDiffValidation checks that every change classified
// as a diff is accepted by the diff chain, and every change classified as an
// integration would be rejected as a diff.
func TestClassify_AgreesWithDiffValidation(t *testing.T) {
	t.Parallel()

	id := testhelpers.NewIdentity(t)
	base := &domain.ResolvedDocument{Document: id.Genesis.Clone(), IntegrationMessageID: testhelpers.MessageID(1)}
	keys := []*signing.KeySigner{testhelpers.NewKey(t), testhelpers.NewKey(t)}

	mutations := []func(d *domain.Document, r *rand.Rand) error{
		func(d *domain.Document, r *rand.Rand) error {
			return d.InsertService(domain.Service{ID: d.ID.Join("svc"), Type: "LinkedDomains", ServiceEndpoint: "https://example.org"})
		},
		func(d *domain.Document, r *rand.Rand) error {
			d.AlsoKnownAs = append(d.AlsoKnownAs, "https://alias.example.org")
			return nil
		},
		func(d *domain.Document, r *rand.Rand) error {
			return d.SetProperty("score", r.Intn(10))
		},
		func(d *domain.Document, r *rand.Rand) error {
			k := keys[r.Intn(len(keys))]
			return d.InsertMethod(signing.NewMethod(d.ID, "auth", k.KeyType(), k.PublicKey()), domain.Authentication)
		},
		func(d *domain.Document, r *rand.Rand) error {
			k := keys[r.Intn(len(keys))]
			return d.InsertMethod(signing.NewMethod(d.ID, "invoke", k.KeyType(), k.PublicKey()), domain.CapabilityInvocation)
		},
		func(d *domain.Document, r *rand.Rand) error {
			d.Controller = append(d.Controller, signing.DeriveDID(keys[r.Intn(len(keys))].PublicKey()))
			return nil
		},
		func(d *domain.Document, r *rand.Rand) error {
			m := *d.CapabilityInvocation[0].Embedded
			m.PublicKeyMultibase = signing.EncodePublicKey(keys[r.Intn(len(keys))].PublicKey())
			d.CapabilityInvocation[0] = domain.EmbedMethod(m)
			return nil
		},
	}

	property := func(seed int64, mask uint8) bool {
		r := rand.New(rand.NewSource(seed))
		updated := base.Document.Clone()
		for i, mutate := range mutations {
			if mask&(1<<i) == 0 {
				continue
			}
			if err := mutate(updated, r); err != nil {
				return false
			}
		}

		kind, ok := publish.Classify(base.Document, updated, publish.Options{})
		if !ok {
			return mask&0x7f == 0
		}

		diff, err := chain.NewDiffMessage(base.Document, updated, base.IntegrationMessageID)
		if err != nil {
			return false
		}
		if err := signing.SignDiff(t.Context(), diff, id.MethodID, id.Signer); err != nil {
			return false
		}
		var dc chain.DiffChain
		_, err = dc.TryPushAndMerge(diff.WithMessageID(testhelpers.MessageID(2)), base)

		switch kind {
		case publish.Diff:
			return err == nil
		case publish.Integration:
			return err != nil
		}
		return false
	}
	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 200}))
}
