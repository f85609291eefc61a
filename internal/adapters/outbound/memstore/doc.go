// Package memstore implements ports.Storage in memory.
//
// Private keys, documents, chain states and the DID index live in maps
// guarded by one RWMutex. Opened with a path, the store doubles as the file
// storage driver: Flush writes a JSON snapshot of everything (private keys
// included, mode 0600) by replacing the file atomically, and Open reads it
// back.
package memstore
