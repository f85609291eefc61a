package chain

import (
	"fmt"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/signing"
)

// IntegrationChain is the append-only list of fully signed documents.
//
// Entry 0 is self-signed and its DID is derived from its signing key. Every
// later entry links to its predecessor's message id and is signed by a
// capability invocation method of the predecessor.
type IntegrationChain struct {
	history []*domain.ResolvedDocument
}

// NewIntegrationChain starts a chain at genesis.
func NewIntegrationChain(genesis *domain.ResolvedDocument) (*IntegrationChain, error) {
	c := &IntegrationChain{}
	if err := c.TryPush(genesis); err != nil {
		return nil, err
	}
	return c, nil
}

// TryPush validates doc against the current head and appends it.
// The chain is unchanged on error.
func (c *IntegrationChain) TryPush(doc *domain.ResolvedDocument) error {
	if doc == nil || doc.Document == nil {
		return fmt.Errorf("%w: integration entry is nil", domain.ErrInvalidDocument)
	}
	if doc.IntegrationMessageID.IsNull() {
		return fmt.Errorf("%w: integration entry has no message id", domain.ErrInvalidDocument)
	}
	if !doc.DiffMessageID.IsNull() {
		return fmt.Errorf("%w: integration entry carries a diff id", domain.ErrInvalidDocument)
	}
	if err := doc.Document.Validate(); err != nil {
		return err
	}
	if doc.PreviousMessageID() != c.CurrentMessageID() {
		return fmt.Errorf("%w: expected %q, got %q",
			domain.ErrInvalidPreviousMessageID, c.CurrentMessageID(), doc.PreviousMessageID())
	}

	if head := c.current(); head != nil {
		if doc.Document.ID != head.Document.ID {
			return fmt.Errorf("%w: entry for %s pushed onto chain of %s",
				domain.ErrInvalidDocument, doc.Document.ID, head.Document.ID)
		}
		if err := signing.VerifyDocument(doc.Document, head.Document); err != nil {
			return err
		}
	} else {
		if err := verifyGenesis(doc.Document); err != nil {
			return err
		}
	}

	c.history = append(c.history, doc.Clone())
	return nil
}

// verifyGenesis checks the genesis proof against the document itself and the
// DID against the signing key.
func verifyGenesis(doc *domain.Document) error {
	if err := signing.VerifyDocument(doc, doc); err != nil {
		return err
	}
	method, err := doc.ResolveMethodIn(doc.Proof.VerificationMethod, domain.CapabilityInvocation)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidGenesis, err)
	}
	return signing.VerifyDIDBinding(doc.ID, method)
}

// Current returns a copy of the head, or nil for an empty chain.
func (c *IntegrationChain) Current() *domain.ResolvedDocument {
	return c.current().Clone()
}

// CurrentMessageID returns the head's message id, or NullMessageID.
func (c *IntegrationChain) CurrentMessageID() domain.MessageID {
	if head := c.current(); head != nil {
		return head.IntegrationMessageID
	}
	return domain.NullMessageID
}

// Len returns the number of entries.
func (c *IntegrationChain) Len() int {
	return len(c.history)
}

// History returns copies of every entry, genesis first.
func (c *IntegrationChain) History() []*domain.ResolvedDocument {
	out := make([]*domain.ResolvedDocument, len(c.history))
	for i, entry := range c.history {
		out[i] = entry.Clone()
	}
	return out
}

func (c *IntegrationChain) current() *domain.ResolvedDocument {
	if len(c.history) == 0 {
		return nil
	}
	return c.history[len(c.history)-1]
}
