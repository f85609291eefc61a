// Package domain contains the domain model of a versioned DID Document chain.
//
// This package is the CORE of the hexagonal architecture - it defines value
// objects and entities with ZERO dependencies on external frameworks, SDKs, or
// infrastructure.
//
// Hexagonal Architecture Boundaries:
//   - Domain NEVER imports from: internal/adapters, internal/ports, external SDKs
//   - Domain ONLY imports from: standard library, other domain types
//   - Domain exposes: value objects, entities, domain errors
//   - Domain does NOT: perform I/O, sign, hash, or talk to a ledger
//
// Signing and hashing live in internal/signing; chain validation lives in
// internal/chain.
//
// Files and types
// -----------------------
//   - message_id.go
//   - MessageID: fixed-size ledger message identifier with a null sentinel.
//
//   - chain_state.go
//   - ChainState: the integration and diff cursors of a local document.
//
//   - did.go
//   - DID and DID URL fragment helpers.
//
//   - document.go, method.go, relationship.go, service.go, proof.go
//   - Document: the DID Document and its mutation helpers. Methods can be
//     listed in verificationMethod or embedded in a relationship.
//
//   - signing_authority.go
//   - SigningAuthority: capability invocation keys plus controllers. The one
//     comparison shared by diff validation and publication classification.
//
//   - resolved.go, diff_message.go
//   - ResolvedDocument and DiffMessage: the two kinds of chain entries.
//
//   - errors.go
//   - Sentinel errors. Chain errors all wrap ErrChain.
package domain
