// Package chain validates and folds the published history of a DID Document.
//
// An IntegrationChain holds fully signed snapshots; a DiffChain holds signed
// merge patches layered on the latest snapshot; a DocumentChain composes both
// and caches the folded current document.
//
// All validation failures wrap domain.ErrChain (broken linkage, bad proofs,
// diffs that alter signing authority) or domain.ErrInvalidDocument. A chain
// is never modified by a failed push.
package chain
