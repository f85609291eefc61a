package memledger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sufield/didchain/internal/chain"
	"github.com/sufield/didchain/internal/debug"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/logging"
	"github.com/sufield/didchain/internal/ports"
	"github.com/sufield/didchain/internal/signing"
)

// subscriberBuffer is the number of notifications queued per subscriber.
const subscriberBuffer = 16

// Ledger is an append-only, content-addressed message store that behaves
// like the public ledger: it accepts any well-formed message and leaves
// validation to readers.
//
// Integration messages are indexed by DID. Diff messages are indexed by the
// hex id of the integration message they extend.
type Ledger struct {
	mu  sync.RWMutex
	seq uint64

	integrations map[domain.DID][]*domain.ResolvedDocument
	diffs        map[string][]*domain.DiffMessage
	subscribers  map[domain.DID]map[chan domain.MessageID]struct{}

	faults *debug.FaultProfile
	logger *slog.Logger
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithFaults injects failures from profile into publishes and reads.
func WithFaults(profile *debug.FaultProfile) Option {
	return func(l *Ledger) { l.faults = profile }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		integrations: make(map[domain.DID][]*domain.ResolvedDocument),
		diffs:        make(map[string][]*domain.DiffMessage),
		subscribers:  make(map[domain.DID]map[chan domain.MessageID]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrNop(l.logger)
	return l
}

// PublishIntegration implements ports.Client.
func (l *Ledger) PublishIntegration(ctx context.Context, doc *domain.Document) (domain.MessageID, error) {
	if doc == nil {
		return domain.NullMessageID, fmt.Errorf("%w: nil document", ports.ErrClient)
	}
	if _, err := domain.ParseDID(string(doc.ID)); err != nil {
		return domain.NullMessageID, fmt.Errorf("%w: %v", ports.ErrClient, err)
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return domain.NullMessageID, fmt.Errorf("%w: encode document: %v", ports.ErrClient, err)
	}
	if err := l.beforePublish(ctx); err != nil {
		return domain.NullMessageID, err
	}

	l.mu.Lock()
	id := l.nextID(string(doc.ID), payload)
	l.integrations[doc.ID] = append(l.integrations[doc.ID], &domain.ResolvedDocument{
		Document:             doc.Clone(),
		IntegrationMessageID: id,
	})
	l.notify(doc.ID, id)
	l.mu.Unlock()

	l.logger.Debug("integration message stored", "did", doc.ID.String(), "message_id", id.String())
	return id, l.afterPublish()
}

// PublishDiff implements ports.Client.
func (l *Ledger) PublishDiff(ctx context.Context, integrationID domain.MessageID, diff *domain.DiffMessage) (domain.MessageID, error) {
	if integrationID.IsNull() {
		return domain.NullMessageID, fmt.Errorf("%w: diff index is the null message id", ports.ErrClient)
	}
	if err := diff.Validate(); err != nil {
		return domain.NullMessageID, fmt.Errorf("%w: %v", ports.ErrClient, err)
	}
	payload, err := json.Marshal(diff)
	if err != nil {
		return domain.NullMessageID, fmt.Errorf("%w: encode diff: %v", ports.ErrClient, err)
	}
	if err := l.beforePublish(ctx); err != nil {
		return domain.NullMessageID, err
	}

	index := integrationID.String()
	l.mu.Lock()
	id := l.nextID(index, payload)
	l.diffs[index] = append(l.diffs[index], diff.WithMessageID(id))
	l.notify(diff.DID, id)
	l.mu.Unlock()

	l.logger.Debug("diff message stored", "did", diff.DID.String(), "index", index, "message_id", id.String())
	return id, l.afterPublish()
}

// ReadDocumentChain implements ports.Client.
func (l *Ledger) ReadDocumentChain(ctx context.Context, did domain.DID) (*chain.DocumentChain, error) {
	integration, diffs, err := l.Messages(ctx, did)
	if err != nil {
		return nil, err
	}
	c, err := chain.Build(did, integration, diffs)
	if errors.Is(err, chain.ErrNoValidGenesis) {
		return nil, fmt.Errorf("%w: %v", ports.ErrIdentityNotFound, err)
	}
	return c, err
}

// ReadDocument implements ports.Client.
func (l *Ledger) ReadDocument(ctx context.Context, did domain.DID) (*domain.ResolvedDocument, error) {
	c, err := l.ReadDocumentChain(ctx, did)
	if err != nil {
		return nil, err
	}
	return c.Fold()
}

// Messages returns every message stored for did, forged or not. Readers
// validate them with chain.Build.
func (l *Ledger) Messages(ctx context.Context, did domain.DID) ([]*domain.ResolvedDocument, []*domain.DiffMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ports.ErrClient, err)
	}
	if l.faults.ShouldFailRead() {
		return nil, nil, fmt.Errorf("%w: injected read failure", ports.ErrClient)
	}
	integration, diffs := l.messages(did)
	return integration, diffs, nil
}

// messages copies every integration message of did and every diff indexed
// under one of them, in arrival order.
func (l *Ledger) messages(did domain.DID) ([]*domain.ResolvedDocument, []*domain.DiffMessage) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var integration []*domain.ResolvedDocument
	var diffs []*domain.DiffMessage
	for _, entry := range l.integrations[did] {
		integration = append(integration, entry.Clone())
		for _, diff := range l.diffs[entry.IntegrationMessageID.String()] {
			diffs = append(diffs, diff.Clone())
		}
	}
	return integration, diffs
}

// Subscribe returns a channel receiving the id of every message published
// for did from now on. Notifications are dropped for a subscriber that falls
// subscriberBuffer messages behind; they are hints to re-read the chain, not
// a message log. cancel closes the channel.
func (l *Ledger) Subscribe(did domain.DID) (<-chan domain.MessageID, func()) {
	ch := make(chan domain.MessageID, subscriberBuffer)

	l.mu.Lock()
	if l.subscribers[did] == nil {
		l.subscribers[did] = make(map[chan domain.MessageID]struct{})
	}
	l.subscribers[did][ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subscribers[did], ch)
			if len(l.subscribers[did]) == 0 {
				delete(l.subscribers, did)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Watch implements ports.Watcher. It returns nil once ctx is done.
func (l *Ledger) Watch(ctx context.Context, did domain.DID, notify func(domain.MessageID)) error {
	events, cancel := l.Subscribe(did)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-events:
			notify(id)
		}
	}
}

// notify fans id out to the subscribers of did. Callers hold the write lock.
func (l *Ledger) notify(did domain.DID, id domain.MessageID) {
	for ch := range l.subscribers[did] {
		select {
		case ch <- id:
		default:
			l.logger.Warn("subscriber lagging, notification dropped", "did", did.String(), "message_id", id.String())
		}
	}
}

// nextID derives the id of the next message. Callers hold the write lock.
func (l *Ledger) nextID(index string, payload []byte) domain.MessageID {
	l.seq++
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], l.seq)
	return domain.MessageID(signing.Hash([]byte(index), payload, seq[:]))
}

func (l *Ledger) beforePublish(ctx context.Context) error {
	if delay := l.faults.GetAndClearDelay(); delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ports.ErrClient, ctx.Err())
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrClient, err)
	}
	if l.faults.ShouldRejectPublish() {
		return fmt.Errorf("%w: injected publish rejection", ports.ErrClient)
	}
	return nil
}

// afterPublish reports an injected failure for a message that was stored,
// like a connection lost after the ledger accepted it.
func (l *Ledger) afterPublish() error {
	if l.faults.ShouldFailPublish() {
		return fmt.Errorf("%w: injected failure after publish", ports.ErrClient)
	}
	return nil
}

var (
	_ ports.Client  = (*Ledger)(nil)
	_ ports.Watcher = (*Ledger)(nil)
)
