// Package memledger implements ports.Client over an in-process ledger.
//
// The ledger stores whatever it is sent, including messages that do not
// link or verify, the way a public ledger would. Readers rebuild chains
// through chain.Build, which skips such messages. cmd/ledgerd serves a
// Ledger over HTTP; tests use it directly.
//
// A debug.FaultProfile can make publishes fail before or after the message
// is stored, delay them, or fail reads.
//
// Subscribe and Watch report the id of each message published for a DID.
package memledger
