// Package publish decides which kind of ledger update a local change needs.
package publish

import (
	"github.com/sufield/didchain/internal/domain"
)

// Type is the kind of publication a change requires.
type Type int

const (
	// Diff is a signed merge patch on the latest integration document. It
	// cannot change signing authority.
	Diff Type = iota + 1

	// Integration is a fully signed republication of the whole document.
	Integration
)

func (t Type) String() string {
	switch t {
	case Diff:
		return "diff"
	case Integration:
		return "integration"
	}
	return "none"
}

// Options alter classification.
type Options struct {
	// ForceIntegration publishes an integration update even when a diff
	// would do, or when nothing changed.
	ForceIntegration bool
}

// Classify decides how to publish the change from old to updated.
//
// The second return value is false when there is nothing to publish. A change
// of signing authority (capability invocation methods, their key material, or
// controllers) requires an integration update; anything else is a diff. This
// uses the same comparison that diff validation enforces, so every change
// classified as Diff is accepted by the diff chain.
func Classify(old, updated *domain.Document, opts Options) (Type, bool) {
	if opts.ForceIntegration {
		return Integration, true
	}
	if old.EqualContent(updated) {
		return 0, false
	}
	if !domain.SameSigningAuthority(old, updated) {
		return Integration, true
	}
	return Diff, true
}
