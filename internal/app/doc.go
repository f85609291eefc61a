// Package app is the application layer: it owns identities and drives the
// chain, publish and signing packages through the ports.
//
// Responsibilities
//   - Account (account.go) holds the working document and chain state of one
//     identity. It applies updates, decides between diff and integration
//     publishes, signs with keys held by ports.KeyStorage, publishes through
//     ports.Client and persists through ports.StateStorage.
//   - Updates (update.go) are the closed set of document mutations.
//   - Manager (manager.go) creates, loads, lists and deletes accounts, and
//     fetches many accounts concurrently.
//   - Bootstrap (bootstrap.go) builds storage, ledger client and Manager from
//     a config.Config.
//
// Publishing pipeline
//
// Every publish is a short sequence: classify, sign, send, commit. Local
// state changes only in commit, after the ledger accepted the message, so a
// failed send can simply be retried. If the ledger stored a message but the
// response was lost, the account stays behind the ledger until
// FetchDocument catches it up.
//
// Concurrency
//
// An Account serializes all of its operations. Accounts of different
// identities share nothing and may run in parallel. At most one Account per
// identity may publish at a time; nothing here enforces that across
// processes.
package app
