package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain failures.
// Use with errors.Is() for checking and fmt.Errorf("%w", ...) for wrapping with context.

var (
	// ErrInvalidDID indicates a DID string is empty or malformed
	ErrInvalidDID = errors.New("invalid DID")

	// ErrInvalidDIDURL indicates a DID URL has no fragment or a foreign DID
	ErrInvalidDIDURL = errors.New("invalid DID URL")

	// ErrInvalidMessageID indicates a message id has the wrong length or encoding
	ErrInvalidMessageID = errors.New("invalid message id")

	// ErrInvalidDocument indicates a document is nil or structurally invalid
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidMethod indicates a verification method is missing fields
	ErrInvalidMethod = errors.New("invalid verification method")

	// ErrDuplicateFragment indicates a method or service fragment is already in use
	ErrDuplicateFragment = errors.New("fragment already exists in document")

	// ErrServiceNotFound indicates a service fragment does not resolve
	ErrServiceNotFound = errors.New("service not found")

	// ErrLastSigningMethod indicates an update would leave no capability invocation method
	ErrLastSigningMethod = errors.New("cannot remove the last capability invocation method")
)

// Method errors: the caller asked for a signing method that cannot be used.
// These are not retryable; supply a different method.

var (
	// ErrMethodNotFound indicates the requested method does not resolve in the document
	ErrMethodNotFound = errors.New("verification method not found")

	// ErrMethodMissingRelationship indicates the method exists but is not
	// authorized for capability invocation
	ErrMethodMissingRelationship = errors.New("verification method lacks capability invocation relationship")
)

// ErrChain is the root of all chain validation failures. A chain error means the
// input is broken (bug in the caller, or a corrupted or malicious remote chain)
// and the operation must be aborted. Chain errors are never retryable.
var ErrChain = errors.New("chain error")

// Chain errors. Each wraps ErrChain, so errors.Is(err, ErrChain) holds for all of them.
var (
	// ErrInvalidPreviousMessageID indicates broken linkage to the previous chain entry
	ErrInvalidPreviousMessageID = chainError("invalid previous message id")

	// ErrInvalidSignature indicates a missing, malformed, unresolvable or failing proof
	ErrInvalidSignature = chainError("invalid signature")

	// ErrInvalidGenesis indicates the first integration entry is not self-certifying
	ErrInvalidGenesis = chainError("invalid genesis document")

	// ErrDiffAltersSigningMethods indicates a diff tried to change who may sign updates
	ErrDiffAltersSigningMethods = chainError("diff cannot alter update signing methods")

	// ErrEmptyChain indicates an integration chain with no entries was used where one is required
	ErrEmptyChain = chainError("integration chain is empty")
)

func chainError(msg string) error {
	return fmt.Errorf("%w: %s", ErrChain, msg)
}
