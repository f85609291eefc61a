package domain

// ProofTypeJWS is the proof suite used for documents and diffs.
const ProofTypeJWS = "JsonWebSignature2020"

// Proof is a detached signature over the canonical form of a document or diff.
//
// VerificationMethod is the DID URL of the signing method; JWS is a detached
// compact JWS whose payload is the unsigned canonical JSON.
type Proof struct {
	Type               string `json:"type"`
	VerificationMethod string `json:"verificationMethod"`
	JWS                string `json:"jws"`
}

// Clone returns a copy of the proof, or nil.
func (p *Proof) Clone() *Proof {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
