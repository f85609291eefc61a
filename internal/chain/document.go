package chain

import (
	"fmt"

	"github.com/sufield/didchain/internal/assert"
	"github.com/sufield/didchain/internal/domain"
)

// DocumentChain composes the integration chain with the diffs layered on its
// head, and exposes the folded current document.
type DocumentChain struct {
	integration IntegrationChain
	diffs       DiffChain

	// folded caches Fold. It is replaced by every successful push.
	folded *domain.ResolvedDocument
}

// NewDocumentChain starts a chain at a validated genesis entry.
func NewDocumentChain(genesis *domain.ResolvedDocument) (*DocumentChain, error) {
	c := &DocumentChain{}
	if err := c.TryPushIntegration(genesis); err != nil {
		return nil, err
	}
	return c, nil
}

// DID returns the identity the chain belongs to.
func (c *DocumentChain) DID() domain.DID {
	if head := c.integration.current(); head != nil {
		return head.Document.ID
	}
	return ""
}

// Fold returns the integration head with every diff applied in order. The
// result is cached, so repeated calls without a push return equal values.
func (c *DocumentChain) Fold() (*domain.ResolvedDocument, error) {
	if c.folded == nil {
		folded, err := c.refold()
		if err != nil {
			return nil, err
		}
		c.folded = folded
	}
	return c.folded.Clone(), nil
}

// Current returns the folded document. Every pushed diff was merged once
// already, so refolding cannot fail on a chain built through its pushes.
func (c *DocumentChain) Current() *domain.ResolvedDocument {
	folded, err := c.Fold()
	assert.Invariant(err == nil, "validated chain must fold")
	return folded
}

func (c *DocumentChain) refold() (*domain.ResolvedDocument, error) {
	head := c.integration.current()
	if head == nil {
		return nil, domain.ErrEmptyChain
	}
	folded := head.Clone()
	for _, diff := range c.diffs.diffs {
		merged, err := Merge(folded.Document, diff.Diff)
		if err != nil {
			return nil, fmt.Errorf("failed to fold diff %s: %w", diff.MessageID, err)
		}
		folded.Document = merged
		folded.DiffMessageID = diff.MessageID
	}
	return folded, nil
}

// TryPushIntegration appends an integration entry and clears the diffs.
func (c *DocumentChain) TryPushIntegration(doc *domain.ResolvedDocument) error {
	if err := c.integration.TryPush(doc); err != nil {
		return err
	}
	c.diffs.Clear()
	c.folded = c.integration.current().Clone()
	return nil
}

// TryPushDiff validates diff against the folded document and appends it.
func (c *DocumentChain) TryPushDiff(diff *domain.DiffMessage) error {
	base, err := c.Fold()
	if err != nil {
		return err
	}
	merged, err := c.diffs.TryPushAndMerge(diff, base)
	if err != nil {
		return err
	}
	c.folded = merged
	return nil
}

// IntegrationMessageID returns the integration head's id.
func (c *DocumentChain) IntegrationMessageID() domain.MessageID {
	return c.integration.CurrentMessageID()
}

// DiffMessageID returns the latest published position on either sub-chain:
// the last diff id, or the integration id when there are no diffs.
func (c *DocumentChain) DiffMessageID() domain.MessageID {
	if c.diffs.IsEmpty() {
		return c.integration.CurrentMessageID()
	}
	return c.diffs.CurrentMessageID()
}

// Position returns the chain state a local copy holds once it is in sync with
// this chain.
func (c *DocumentChain) Position() domain.ChainState {
	return domain.ChainState{
		LastIntegrationMessageID: c.integration.CurrentMessageID(),
		LastDiffMessageID:        c.diffs.CurrentMessageID(),
	}
}

// Integrations returns copies of the integration entries, genesis first.
func (c *DocumentChain) Integrations() []*domain.ResolvedDocument {
	return c.integration.History()
}

// Diffs returns copies of the diffs on the integration head.
func (c *DocumentChain) Diffs() []*domain.DiffMessage {
	return c.diffs.Diffs()
}

// HasDiffs reports whether any diff is layered on the integration head.
func (c *DocumentChain) HasDiffs() bool {
	return !c.diffs.IsEmpty()
}
