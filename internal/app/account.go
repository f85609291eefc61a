package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sufield/didchain/internal/assert"
	"github.com/sufield/didchain/internal/chain"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/ports"
	"github.com/sufield/didchain/internal/publish"
	"github.com/sufield/didchain/internal/signing"
)

// PublishOptions alter a single publish.
type PublishOptions struct {
	// ForceIntegration publishes a full document even when a diff would do.
	ForceIntegration bool

	// SignWith selects the signing method by fragment or DID URL. It must be
	// a capability invocation method of the last published document.
	SignWith string
}

// PublishResult describes what a publish sent to the ledger. A zero result
// means nothing was published.
type PublishResult struct {
	Type      publish.Type
	MessageID domain.MessageID
}

// Published reports whether a message was sent.
func (r PublishResult) Published() bool {
	return r.Type != 0
}

// Account controls one identity: its working document, the chain position
// of the last published or fetched document, and the keys in storage.
//
// Every operation holds the account lock for its whole duration, including
// ledger and storage calls. Different accounts share nothing.
type Account struct {
	mu sync.Mutex

	id ports.IdentityID

	// document is the working copy; published is the document at state.
	// They differ while updates are unpublished.
	document  *domain.Document
	published *domain.Document
	state     domain.ChainState

	actions   uint64
	flushedAt uint64

	// retired holds keys of deleted methods. They are removed from storage
	// once a publish without the method succeeds.
	retired []ports.KeyLocation

	cfg     AccountConfig
	storage ports.Storage
	client  ports.Client
	logger  *slog.Logger
	now     func() time.Time
}

// ID returns the storage id of the identity.
func (a *Account) ID() ports.IdentityID {
	return a.id
}

// DID returns the identifier of the identity.
func (a *Account) DID() domain.DID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.document.ID
}

// Document returns a copy of the working document.
func (a *Account) Document() *domain.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.document.Clone()
}

// ChainState returns the chain position of the last published or fetched
// document.
func (a *Account) ChainState() domain.ChainState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Actions returns the number of applied updates and fetches.
func (a *Account) Actions() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.actions
}

// ApplyUpdate applies u to a copy of the working document and, with
// AutoPublish, publishes the result.
//
// A failed update leaves the working document unchanged. A failed publish
// leaves the update applied but unpublished and unpersisted; the caller may
// publish again or fetch to discard it.
func (a *Account) ApplyUpdate(ctx context.Context, u Update) (PublishResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc := a.document.Clone()
	if err := u.apply(ctx, a, doc); err != nil {
		return PublishResult{}, err
	}
	if err := doc.Validate(); err != nil {
		return PublishResult{}, err
	}
	a.document = doc
	a.actions++
	a.logger.Debug("update applied", "update", fmt.Sprintf("%T", u), "actions", a.actions)

	if !a.cfg.AutoPublish {
		return PublishResult{}, nil
	}
	return a.publish(ctx, PublishOptions{})
}

// Publish publishes the working document regardless of AutoPublish.
func (a *Account) Publish(ctx context.Context, opts PublishOptions) (PublishResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.publish(ctx, opts)
}

func (a *Account) publish(ctx context.Context, opts PublishOptions) (PublishResult, error) {
	if a.state.IsNewIdentity() {
		return a.publishGenesis(ctx, opts)
	}

	kind, changed := publish.Classify(a.published, a.document, publish.Options{ForceIntegration: opts.ForceIntegration})
	if !changed {
		a.logger.Debug("nothing to publish")
		return PublishResult{}, nil
	}
	if kind == publish.Integration {
		return a.publishIntegration(ctx, opts)
	}
	return a.publishDiff(ctx, opts)
}

// publishGenesis self-signs the working document.
func (a *Account) publishGenesis(ctx context.Context, opts PublishOptions) (PublishResult, error) {
	doc := a.document.Clone()
	doc.Metadata.Updated = a.now()
	doc.Metadata.PreviousMessageID = domain.NullMessageID

	methodID, signer, err := a.signerFor(ctx, doc, opts.SignWith)
	if err != nil {
		return PublishResult{}, err
	}
	if err := signing.SignDocument(ctx, doc, methodID, signer); err != nil {
		return PublishResult{}, err
	}
	id, err := a.sendIntegration(ctx, doc)
	if err != nil {
		return PublishResult{}, err
	}
	return a.commit(ctx, doc, a.state.AfterIntegration(id), PublishResult{Type: publish.Integration, MessageID: id}, methodID)
}

// publishIntegration signs the working document with a key of the last
// published document and links it to the last integration message.
func (a *Account) publishIntegration(ctx context.Context, opts PublishOptions) (PublishResult, error) {
	doc := a.document.Clone()
	doc.Metadata.Updated = a.now()
	doc.Metadata.PreviousMessageID = a.state.LastIntegrationMessageID

	methodID, signer, err := a.signerFor(ctx, a.published, opts.SignWith)
	if err != nil {
		return PublishResult{}, err
	}
	if err := signing.SignDocument(ctx, doc, methodID, signer); err != nil {
		return PublishResult{}, err
	}
	id, err := a.sendIntegration(ctx, doc)
	if err != nil {
		return PublishResult{}, err
	}
	return a.commit(ctx, doc, a.state.AfterIntegration(id), PublishResult{Type: publish.Integration, MessageID: id}, methodID)
}

// publishDiff publishes the merge patch from the last published document to
// the working document.
func (a *Account) publishDiff(ctx context.Context, opts PublishOptions) (PublishResult, error) {
	updated := a.document.Clone()
	updated.Metadata.Created = a.published.Metadata.Created
	updated.Metadata.PreviousMessageID = a.published.Metadata.PreviousMessageID
	updated.Metadata.Updated = a.now()

	diff, err := chain.NewDiffMessage(a.published, updated, a.state.DiffParent())
	if err != nil {
		return PublishResult{}, err
	}
	methodID, signer, err := a.signerFor(ctx, a.published, opts.SignWith)
	if err != nil {
		return PublishResult{}, err
	}
	if err := signing.SignDiff(ctx, diff, methodID, signer); err != nil {
		return PublishResult{}, err
	}
	id, err := a.sendDiff(ctx, diff)
	if err != nil {
		return PublishResult{}, err
	}

	// A folded document keeps the proof of its integration message.
	updated.Proof = a.published.Proof.Clone()
	return a.commit(ctx, updated, a.state.AfterDiff(id), PublishResult{Type: publish.Diff, MessageID: id}, methodID)
}

func (a *Account) sendIntegration(ctx context.Context, doc *domain.Document) (domain.MessageID, error) {
	if a.cfg.TestMode {
		return localMessageID(doc)
	}
	return a.client.PublishIntegration(ctx, doc)
}

func (a *Account) sendDiff(ctx context.Context, diff *domain.DiffMessage) (domain.MessageID, error) {
	if a.cfg.TestMode {
		return localMessageID(diff)
	}
	return a.client.PublishDiff(ctx, a.state.LastIntegrationMessageID, diff)
}

// localMessageID stands in for a ledger id in test mode.
func localMessageID(v any) (domain.MessageID, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return domain.NullMessageID, fmt.Errorf("failed to encode message: %w", err)
	}
	return domain.MessageID(signing.Hash(payload)), nil
}

// commit installs a published document. The ledger already accepted the
// message, so a persistence failure is returned together with the result.
func (a *Account) commit(ctx context.Context, doc *domain.Document, next domain.ChainState, res PublishResult, methodID string) (PublishResult, error) {
	assert.Invariant(!next.LastIntegrationMessageID.IsNull(), "published chain state must have an integration id")

	a.document = doc
	a.published = doc.Clone()
	a.state = next
	a.logger.Info("published",
		"type", res.Type.String(),
		"message_id", res.MessageID.String(),
		"signed_with", methodID,
	)

	if err := a.persist(ctx); err != nil {
		return res, err
	}
	a.dropRetiredKeys(ctx)
	return res, nil
}

func (a *Account) persist(ctx context.Context) error {
	if err := a.storage.DocumentSet(ctx, a.id, a.document); err != nil {
		return err
	}
	if err := a.storage.ChainStateSet(ctx, a.id, a.state); err != nil {
		return err
	}
	if a.cfg.AutoSave.ShouldFlush(a.actions - a.flushedAt) {
		return a.flush(ctx)
	}
	return nil
}

func (a *Account) flush(ctx context.Context) error {
	if err := a.storage.Flush(ctx); err != nil {
		return err
	}
	a.flushedAt = a.actions
	return nil
}

// Flush makes every persisted change durable. Needed with AutoSaveNever.
func (a *Account) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flush(ctx)
}

// dropRetiredKeys deletes keys no method of the published document uses.
// Failures only leave an orphaned key behind, so they are logged.
func (a *Account) dropRetiredKeys(ctx context.Context) {
	if len(a.retired) == 0 {
		return
	}
	inUse := make(map[ports.KeyLocation]bool)
	for _, m := range a.published.Methods() {
		if loc, err := methodKeyLocation(a.published, &m); err == nil {
			inUse[loc] = true
		}
	}
	for _, loc := range a.retired {
		if inUse[loc] {
			continue
		}
		err := a.storage.KeyDelete(ctx, a.id, loc)
		if err != nil && !errors.Is(err, ports.ErrKeyNotFound) {
			a.logger.Warn("failed to delete retired key", "key", loc.String(), "error", err)
		}
	}
	a.retired = nil
}

// signerFor picks the key that signs on behalf of signer, a document whose
// capability invocation set authorizes the next message.
func (a *Account) signerFor(ctx context.Context, signer *domain.Document, signWith string) (string, signing.Signer, error) {
	if signWith != "" {
		m, err := signer.ResolveMethodIn(signWith, domain.CapabilityInvocation)
		if err != nil {
			return "", nil, err
		}
		methodID, s, err := a.storedSigner(ctx, signer, m)
		if err != nil {
			return "", nil, err
		}
		if s == nil {
			return "", nil, fmt.Errorf("%w: no stored key for %q", ports.ErrKeyNotFound, signWith)
		}
		return methodID, s, nil
	}

	for _, ref := range signer.CapabilityInvocation {
		m, err := signer.ResolveMethodIn(ref.ID(), domain.CapabilityInvocation)
		if err != nil {
			continue
		}
		methodID, s, err := a.storedSigner(ctx, signer, m)
		if err != nil {
			return "", nil, err
		}
		if s != nil {
			return methodID, s, nil
		}
	}
	return "", nil, fmt.Errorf("%w: no capability invocation method has a stored key", domain.ErrMethodNotFound)
}

// storedSigner returns a signer for m, or nil if its key is not in storage
// or m cannot sign.
func (a *Account) storedSigner(ctx context.Context, doc *domain.Document, m *domain.VerificationMethod) (string, signing.Signer, error) {
	if !m.Type.CanSign() {
		return "", nil, nil
	}
	loc, err := methodKeyLocation(doc, m)
	if err != nil {
		return "", nil, nil
	}
	ok, err := a.storage.KeyExists(ctx, a.id, loc)
	if err != nil || !ok {
		return "", nil, err
	}
	_, public, _ := signing.MethodPublicKey(m)
	return doc.ID.Join(loc.Fragment), &storageSigner{
		storage: a.storage,
		id:      a.id,
		loc:     loc,
		public:  public,
	}, nil
}

// FetchDocument replaces the working document and chain state with the
// ledger's current chain when it is at a different position.
//
// The ledger wins: unpublished local updates are discarded. Storage is
// written before memory, so a failed fetch leaves the account untouched.
// Fetching twice without a remote change is a no-op the second time, and so
// is a fetch whose remote chain ends at the local integration message with
// no diffs.
func (a *Account) FetchDocument(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg.TestMode {
		return false, nil
	}

	remote, err := a.client.ReadDocumentChain(ctx, a.document.ID)
	if err != nil {
		return false, err
	}
	position := remote.Position()
	if position == a.state {
		a.logger.Debug("fetch: already at remote position", "integration", position.LastIntegrationMessageID.String())
		return false, nil
	}
	// The ledger has our integration message but none of the diffs under it
	// yet. Local diffs are kept rather than rolled back.
	if position.LastIntegrationMessageID == a.state.LastIntegrationMessageID && !remote.HasDiffs() {
		a.logger.Debug("fetch: remote has no diffs under the local integration message",
			"integration", position.LastIntegrationMessageID.String(),
			"local_diff", a.state.LastDiffMessageID.String())
		return false, nil
	}
	resolved, err := remote.Fold()
	if err != nil {
		return false, err
	}

	doc := resolved.Document.Clone()
	if err := a.storage.DocumentSet(ctx, a.id, doc); err != nil {
		return false, err
	}
	if err := a.storage.ChainStateSet(ctx, a.id, position); err != nil {
		return false, err
	}

	a.document = doc
	a.published = doc.Clone()
	a.state = position
	a.actions++
	a.logger.Info("fetched remote document",
		"integration", position.LastIntegrationMessageID.String(),
		"diff", position.LastDiffMessageID.String(),
	)

	a.dropRetiredKeys(ctx)
	if a.cfg.AutoSave.ShouldFlush(a.actions - a.flushedAt) {
		if err := a.flush(ctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Resolve reads the current document of the identity from the ledger. In
// test mode it returns the last published document.
func (a *Account) Resolve(ctx context.Context) (*domain.ResolvedDocument, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg.TestMode {
		if a.published == nil {
			return nil, ports.ErrIdentityNotFound
		}
		return &domain.ResolvedDocument{
			Document:             a.published.Clone(),
			IntegrationMessageID: a.state.LastIntegrationMessageID,
			DiffMessageID:        a.state.LastDiffMessageID,
		}, nil
	}
	return a.client.ReadDocument(ctx, a.document.ID)
}

// Watch fetches the document every time the ledger reports a message for
// the identity, until ctx is done. onFetch, when set, receives the outcome of
// each fetch; a failed fetch does not stop the watch.
func (a *Account) Watch(ctx context.Context, onFetch func(changed bool, err error)) error {
	w, ok := a.client.(ports.Watcher)
	if a.cfg.TestMode || !ok {
		return ErrWatchUnsupported
	}
	did := a.DID()
	a.logger.Info("watching ledger", "did", did.String())
	return w.Watch(ctx, did, func(id domain.MessageID) {
		changed, err := a.FetchDocument(ctx)
		if err != nil {
			a.logger.Warn("fetch after notification failed", "message_id", id.String(), "error", err)
		}
		if onFetch != nil {
			onFetch(changed, err)
		}
	})
}

// methodKeyLocation returns where the private key of m is stored.
func methodKeyLocation(doc *domain.Document, m *domain.VerificationMethod) (ports.KeyLocation, error) {
	fragment, err := domain.Fragment(doc.ID, m.ID)
	if err != nil {
		return ports.KeyLocation{}, err
	}
	kt, public, err := signing.MethodPublicKey(m)
	if err != nil {
		return ports.KeyLocation{}, err
	}
	return ports.NewKeyLocation(kt, fragment, public), nil
}

// storageSigner signs with a key that never leaves storage.
type storageSigner struct {
	storage ports.KeyStorage
	id      ports.IdentityID
	loc     ports.KeyLocation
	public  []byte
}

func (s *storageSigner) KeyType() signing.KeyType { return s.loc.KeyType }

func (s *storageSigner) PublicKey() []byte { return append([]byte(nil), s.public...) }

func (s *storageSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return s.storage.KeySign(ctx, s.id, s.loc, data)
}

var _ signing.Signer = (*storageSigner)(nil)
