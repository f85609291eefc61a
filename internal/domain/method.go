package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MethodType names the verification suite of a method's key material.
type MethodType string

const (
	// MethodTypeEd25519 is an Ed25519 signing key.
	MethodTypeEd25519 MethodType = "Ed25519VerificationKey2018"

	// MethodTypeX25519 is an X25519 key agreement key. It cannot sign.
	MethodTypeX25519 MethodType = "X25519KeyAgreementKey2019"
)

// CanSign reports whether keys of this type can produce proofs.
func (t MethodType) CanSign() bool {
	return t == MethodTypeEd25519
}

// VerificationMethod is a public key published in a DID Document.
//
// PublicKeyMultibase carries the key material. Two methods carry the same key
// material if and only if both Type and PublicKeyMultibase are equal.
type VerificationMethod struct {
	ID                 string     `json:"id"`
	Controller         DID        `json:"controller"`
	Type               MethodType `json:"type"`
	PublicKeyMultibase string     `json:"publicKeyMultibase"`
}

// Validate checks the method has every required field.
func (m *VerificationMethod) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: method is nil", ErrInvalidMethod)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidMethod)
	}
	if m.Controller == "" {
		return fmt.Errorf("%w: controller is required for %s", ErrInvalidMethod, m.ID)
	}
	if m.Type == "" {
		return fmt.Errorf("%w: type is required for %s", ErrInvalidMethod, m.ID)
	}
	if m.PublicKeyMultibase == "" {
		return fmt.Errorf("%w: key material is required for %s", ErrInvalidMethod, m.ID)
	}
	return nil
}

// KeyMaterial returns the comparable identity of the method's key.
func (m *VerificationMethod) KeyMaterial() string {
	return string(m.Type) + ":" + m.PublicKeyMultibase
}

// MethodRef is an entry of a verification relationship: either a method
// embedded in the relationship, or a reference to a method of the
// verificationMethod list.
//
// It encodes as a JSON object when embedded and as a JSON string otherwise.
type MethodRef struct {
	Embedded  *VerificationMethod
	Reference string
}

// EmbedMethod wraps a method as an embedded relationship entry.
func EmbedMethod(m VerificationMethod) MethodRef {
	return MethodRef{Embedded: &m}
}

// ReferenceMethod builds a relationship entry pointing at id.
func ReferenceMethod(id string) MethodRef {
	return MethodRef{Reference: id}
}

// ID returns the id of the embedded method or the reference.
func (r MethodRef) ID() string {
	if r.Embedded != nil {
		return r.Embedded.ID
	}
	return r.Reference
}

// MarshalJSON encodes embedded methods as objects and references as strings.
func (r MethodRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.Reference)
}

// UnmarshalJSON accepts either encoding produced by MarshalJSON.
func (r *MethodRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var ref string
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		*r = MethodRef{Reference: ref}
		return nil
	}
	var m VerificationMethod
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMethod, err)
	}
	*r = MethodRef{Embedded: &m}
	return nil
}
