// Package ports defines the outbound ports (interfaces and types) that
// decouple the account logic from the ledger and storage adapters.
//
// Purpose
// -------
// Ports are the boundary between the application and the infrastructure.
// Interfaces represent the contracts that adapters must satisfy. Keep them
// stable and focused; adapters implement them on top of Postgres, HTTP or
// process memory.
//
// Files and responsibilities
// --------------------------
//   - outbound.go
//   - Client (ledger), KeyStorage, StateStorage and Storage.
//   - Each interface includes an "Error Contract" in comments describing
//     sentinel errors returned by implementations.
//   - types.go
//   - IdentityID (ULID), IndexEntry and KeyLocation.
//   - errors.go
//   - Infrastructure sentinel errors: ErrClient, ErrStorage,
//     ErrIdentityNotFound, ErrKeyNotFound, ErrKeyExists.
//
// notes
// ------------
//   - Keys are addressed by identity id rather than DID, because the genesis
//     key is generated before the DID can be derived from it.
//   - Ports pass domain types from internal/domain; the only other core
//     package they reference is internal/chain, for rebuilt ledger chains.
package ports
