package chain

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/sufield/didchain/internal/domain"
)

// NewDiffMessage builds the unsigned diff that takes old to updated. The
// patch is an RFC 7386 merge patch of the unsigned documents.
func NewDiffMessage(old, updated *domain.Document, previous domain.MessageID) (*domain.DiffMessage, error) {
	if old == nil || updated == nil {
		return nil, fmt.Errorf("%w: cannot diff a nil document", domain.ErrInvalidDocument)
	}
	if old.ID != updated.ID {
		return nil, fmt.Errorf("%w: cannot diff %s against %s", domain.ErrInvalidDocument, updated.ID, old.ID)
	}
	a, err := old.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode base document: %w", err)
	}
	b, err := updated.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode updated document: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge patch: %w", err)
	}
	return &domain.DiffMessage{
		DID:               old.ID,
		Diff:              patch,
		PreviousMessageID: previous,
	}, nil
}

// Merge applies a merge patch to doc and returns the result. doc is not
// modified. The result keeps the proof of doc, since a diff never re-signs
// the document it extends.
//
// A patch may not change the document id or its integration linkage. The
// result is not validated; callers check signing authority first.
func Merge(doc *domain.Document, patch json.RawMessage) (*domain.Document, error) {
	base, err := doc.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode base document: %w", err)
	}
	merged, err := jsonpatch.MergePatch(base, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed patch: %v", domain.ErrInvalidDocument, err)
	}

	var out domain.Document
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("%w: patched document: %v", domain.ErrInvalidDocument, err)
	}
	if out.ID != doc.ID {
		return nil, fmt.Errorf("%w: patch changes document id", domain.ErrInvalidDocument)
	}
	if out.Metadata.PreviousMessageID != doc.Metadata.PreviousMessageID {
		return nil, fmt.Errorf("%w: patch changes integration linkage", domain.ErrInvalidPreviousMessageID)
	}
	out.Proof = doc.Proof.Clone()
	return &out, nil
}
