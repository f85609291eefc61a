package ports

import "errors"

// Infrastructure errors for the adapter layer.
//
// These errors represent infrastructure concerns and are separate from domain
// errors, which represent chain and document failures.
//
// Usage:
//   - Adapters wrap these when an operation fails
//   - The domain and chain packages never use them
//   - Callers retry on ErrClient; ErrStorage is fatal for the current operation

// ErrClient indicates a ledger or network failure while publishing or reading.
// It is transient: the core leaves state consistent for a retry.
//
// Used by:
//   - memledger and httpledger for every failed call
var ErrClient = errors.New("ledger client error")

// ErrStorage indicates a persistence failure. The in-memory account state is
// not corrupted, only the durable copy may be stale.
//
// Used by:
//   - memstore and pgstore for every failed read or write
var ErrStorage = errors.New("storage error")

// ErrIdentityNotFound indicates an identity is unknown to the storage or has
// no valid chain on the ledger.
var ErrIdentityNotFound = errors.New("identity not found")

// ErrKeyNotFound indicates no key is stored at a location.
var ErrKeyNotFound = errors.New("key not found")

// ErrKeyExists indicates a key is already stored at a location.
var ErrKeyExists = errors.New("key already exists")
