// Package adapters contains the infrastructure implementations of the ports
// in internal/ports.
//
// Adapters translate between the account logic and external systems. They
// import internal/domain, internal/chain and internal/ports; nothing in the
// core imports an adapter. The composition root is app.Bootstrap, driven by
// cmd/didctl and cmd/ledgerd.
//
// Inbound adapters (driving)
//
//   - inbound/ledgerapi: chi HTTP API exposing a ledger, served by ledgerd,
//     with a websocket route streaming publish notifications.
//
// Outbound adapters (driven)
//
//   - outbound/memledger: in-process ledger with deterministic message ids
//     and optional fault injection.
//   - outbound/httpledger: ports.Client over the ledgerapi HTTP API. Chains
//     are rebuilt and verified locally. Watch follows the websocket route.
//   - outbound/memstore: ports.Storage in memory, optionally persisted to a
//     JSON file.
//   - outbound/pgstore: ports.Storage on PostgreSQL via pgx.
//
// Ledger adapters never validate chains themselves; chain.Build does that for
// every reader so a dishonest ledger cannot forge history.
package adapters
