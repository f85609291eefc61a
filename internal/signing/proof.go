package signing

import (
	"context"
	"fmt"

	"github.com/sufield/didchain/internal/domain"
)

// SignDocument signs the canonical form of doc with s and stores the proof in
// doc. methodID is the DID URL of the method s signs for.
func SignDocument(ctx context.Context, doc *domain.Document, methodID string, s Signer) error {
	payload, err := doc.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	jws, err := signDetached(ctx, s, payload)
	if err != nil {
		return err
	}
	doc.Proof = &domain.Proof{
		Type:               domain.ProofTypeJWS,
		VerificationMethod: methodID,
		JWS:                jws,
	}
	return nil
}

// VerifyDocument checks the proof of doc against a capability invocation
// method of signer. For a genesis document signer is doc itself.
//
// Every failure wraps domain.ErrInvalidSignature.
func VerifyDocument(doc, signer *domain.Document) error {
	payload, err := doc.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return verifyProof(doc.Proof, payload, signer)
}

// SignDiff signs the canonical form of diff with s and stores the proof.
func SignDiff(ctx context.Context, diff *domain.DiffMessage, methodID string, s Signer) error {
	payload, err := diff.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode diff: %w", err)
	}
	jws, err := signDetached(ctx, s, payload)
	if err != nil {
		return err
	}
	diff.Proof = &domain.Proof{
		Type:               domain.ProofTypeJWS,
		VerificationMethod: methodID,
		JWS:                jws,
	}
	return nil
}

// VerifyDiff checks the proof of diff against a capability invocation method
// of signer, the document the diff applies to.
func VerifyDiff(diff *domain.DiffMessage, signer *domain.Document) error {
	payload, err := diff.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return verifyProof(diff.Proof, payload, signer)
}

func verifyProof(proof *domain.Proof, payload []byte, signer *domain.Document) error {
	if proof == nil {
		return fmt.Errorf("%w: missing proof", domain.ErrInvalidSignature)
	}
	if proof.Type != domain.ProofTypeJWS {
		return fmt.Errorf("%w: unsupported proof type %q", domain.ErrInvalidSignature, proof.Type)
	}
	method, err := signer.ResolveMethodIn(proof.VerificationMethod, domain.CapabilityInvocation)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	kt, public, err := MethodPublicKey(method)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	if err := verifyDetached(kt, public, proof.JWS, payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return nil
}
