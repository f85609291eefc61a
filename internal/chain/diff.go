package chain

import (
	"fmt"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/signing"
)

// DiffChain is the list of diffs layered on the latest integration entry,
// in insertion order. It is cleared whenever a new integration entry lands.
type DiffChain struct {
	diffs []*domain.DiffMessage
}

// TryPushAndMerge validates diff against base, the document it applies to,
// appends it and returns the merged document. The chain is unchanged on
// error.
func (c *DiffChain) TryPushAndMerge(diff *domain.DiffMessage, base *domain.ResolvedDocument) (*domain.ResolvedDocument, error) {
	if base == nil || base.Document == nil {
		return nil, fmt.Errorf("%w: diff base is nil", domain.ErrEmptyChain)
	}
	if err := diff.Validate(); err != nil {
		return nil, err
	}
	if diff.MessageID.IsNull() {
		return nil, fmt.Errorf("%w: diff has no message id", domain.ErrInvalidDocument)
	}
	if diff.DID != base.Document.ID {
		return nil, fmt.Errorf("%w: diff for %s applied to %s", domain.ErrInvalidDocument, diff.DID, base.Document.ID)
	}

	expected := c.CurrentMessageID()
	if expected.IsNull() {
		expected = base.IntegrationMessageID
	}
	if diff.PreviousMessageID != expected {
		return nil, fmt.Errorf("%w: expected %q, got %q", domain.ErrInvalidPreviousMessageID, expected, diff.PreviousMessageID)
	}
	if err := signing.VerifyDiff(diff, base.Document); err != nil {
		return nil, err
	}

	merged, err := Merge(base.Document, diff.Diff)
	if err != nil {
		return nil, err
	}
	if err := CheckValidAddition(base.Document, merged); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	c.diffs = append(c.diffs, diff.Clone())
	return &domain.ResolvedDocument{
		Document:             merged,
		IntegrationMessageID: base.IntegrationMessageID,
		DiffMessageID:        diff.MessageID,
	}, nil
}

// CheckValidAddition rejects a merge that changes who may sign updates: any
// capability invocation method added, removed or re-keyed, or any change to
// the controller set.
func CheckValidAddition(base, merged *domain.Document) error {
	if !domain.SameSigningAuthority(base, merged) {
		return domain.ErrDiffAltersSigningMethods
	}
	return nil
}

// Clear drops every diff.
func (c *DiffChain) Clear() {
	c.diffs = nil
}

// IsEmpty reports whether no diff has been pushed since the last Clear.
func (c *DiffChain) IsEmpty() bool {
	return len(c.diffs) == 0
}

// Len returns the number of diffs.
func (c *DiffChain) Len() int {
	return len(c.diffs)
}

// CurrentMessageID returns the id of the last diff, or NullMessageID.
func (c *DiffChain) CurrentMessageID() domain.MessageID {
	if len(c.diffs) == 0 {
		return domain.NullMessageID
	}
	return c.diffs[len(c.diffs)-1].MessageID
}

// Diffs returns copies of every diff in insertion order.
func (c *DiffChain) Diffs() []*domain.DiffMessage {
	out := make([]*domain.DiffMessage, len(c.diffs))
	for i, d := range c.diffs {
		out[i] = d.Clone()
	}
	return out
}
