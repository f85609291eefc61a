// Package signing holds every cryptographic operation of the module: key
// generation, DID derivation, and the detached JWS proofs on documents and
// diff messages.
//
// Proofs are compact JWS with a detached payload. The payload is the
// canonical JSON of the unsigned document (or diff message), so the proof
// travels inside the very object it covers.
package signing
