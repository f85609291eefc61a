package ports

import (
	"context"

	"github.com/sufield/didchain/internal/chain"
	"github.com/sufield/didchain/internal/domain"
)

// Client publishes to and reads from the ledger.
//
// Implementations perform no retries; the caller decides whether to retry a
// failed call. Reads return chains that were validated through chain.Build,
// so a caller never sees an entry that does not link or verify.
//
// Error Contract:
// - Every transport or ledger failure wraps ErrClient
// - ReadDocumentChain and ReadDocument return ErrIdentityNotFound if no valid
//   genesis document exists for the DID
type Client interface {
	// PublishIntegration publishes a fully signed document and returns the
	// ledger id of the new message.
	PublishIntegration(ctx context.Context, doc *domain.Document) (domain.MessageID, error)

	// PublishDiff publishes a signed diff. Diffs are indexed under the
	// integration message they extend.
	PublishDiff(ctx context.Context, integrationID domain.MessageID, diff *domain.DiffMessage) (domain.MessageID, error)

	// ReadDocumentChain reads and rebuilds the whole chain of did.
	ReadDocumentChain(ctx context.Context, did domain.DID) (*chain.DocumentChain, error)

	// ReadDocument reads the folded current document of did.
	ReadDocument(ctx context.Context, did domain.DID) (*domain.ResolvedDocument, error)
}

// Watcher is implemented by clients that push the id of every message
// published for a DID. Notifications may be dropped or duplicated; readers
// re-read the chain on each one.
//
// Error Contract:
// - Returns nil once ctx is done
// - Connection failures wrap ErrClient
type Watcher interface {
	Watch(ctx context.Context, did domain.DID, notify func(domain.MessageID)) error
}

// KeyStorage holds private keys. Private key bytes never leave it; callers
// sign through KeySign.
//
// Error Contract:
// - Returns ErrKeyNotFound if no key exists at the location
// - KeyGenerate and KeyMove return ErrKeyExists if the target is taken
// - Every backend failure wraps ErrStorage
type KeyStorage interface {
	// KeyGenerate creates a key at loc and returns its public key.
	KeyGenerate(ctx context.Context, id IdentityID, loc KeyLocation) ([]byte, error)

	// KeyMove renames a key.
	KeyMove(ctx context.Context, id IdentityID, from, to KeyLocation) error

	// KeyPublic returns the public key stored at loc.
	KeyPublic(ctx context.Context, id IdentityID, loc KeyLocation) ([]byte, error)

	// KeySign signs data with the key at loc.
	KeySign(ctx context.Context, id IdentityID, loc KeyLocation, data []byte) ([]byte, error)

	// KeyExists reports whether a key is stored at loc.
	KeyExists(ctx context.Context, id IdentityID, loc KeyLocation) (bool, error)

	// KeyDelete removes the key at loc.
	KeyDelete(ctx context.Context, id IdentityID, loc KeyLocation) error
}

// StateStorage persists the local document, its chain state and the index
// from DID to identity id.
//
// Error Contract:
// - DocumentGet, ChainStateGet and IndexGet return ErrIdentityNotFound for
//   unknown identities
// - Every backend failure wraps ErrStorage
type StateStorage interface {
	DocumentGet(ctx context.Context, id IdentityID) (*domain.Document, error)
	DocumentSet(ctx context.Context, id IdentityID, doc *domain.Document) error

	ChainStateGet(ctx context.Context, id IdentityID) (domain.ChainState, error)
	ChainStateSet(ctx context.Context, id IdentityID, state domain.ChainState) error

	IndexGet(ctx context.Context, did domain.DID) (IdentityID, error)
	IndexSet(ctx context.Context, did domain.DID, id IdentityID) error

	// Index lists every known identity, ordered by DID.
	Index(ctx context.Context) ([]IndexEntry, error)

	// Purge removes everything stored for id: document, chain state, keys
	// and index entry.
	Purge(ctx context.Context, id IdentityID) error

	// Flush makes previous writes durable.
	Flush(ctx context.Context) error
}

// Storage is the full persistence backend of an account.
type Storage interface {
	KeyStorage
	StateStorage
}
