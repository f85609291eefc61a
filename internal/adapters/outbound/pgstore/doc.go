// Package pgstore implements ports.Storage on PostgreSQL with pgx.
//
// Private keys are stored unencrypted in didchain_keys; protect the
// database accordingly. Documents are kept as JSONB, chain positions as hex
// message ids, and the DID index maps each DID to one identity id.
package pgstore
