// Package ledgerapi exposes a ledger over HTTP with a chi router.
//
// The API stores messages as it receives them, after checking only that they
// are well formed. Clients must rebuild and verify the chain from the
// message list; the resolve endpoint is a convenience for tools that trust
// the ledger operator.
//
// Ledgers that implement Notifier also get a websocket route pushing the id
// of every new message for a DID.
package ledgerapi
