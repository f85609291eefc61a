package domain

import "fmt"

// MethodRelationship is a verification relationship of a DID Document.
type MethodRelationship string

const (
	Authentication       MethodRelationship = "authentication"
	AssertionMethod      MethodRelationship = "assertionMethod"
	KeyAgreement         MethodRelationship = "keyAgreement"
	CapabilityDelegation MethodRelationship = "capabilityDelegation"

	// CapabilityInvocation is the signing authority set: only its methods may
	// sign integration updates and diffs.
	CapabilityInvocation MethodRelationship = "capabilityInvocation"
)

// Relationships lists every relationship in document order.
var Relationships = []MethodRelationship{
	Authentication,
	AssertionMethod,
	KeyAgreement,
	CapabilityDelegation,
	CapabilityInvocation,
}

// ParseMethodRelationship parses the JSON name of a relationship.
func ParseMethodRelationship(s string) (MethodRelationship, error) {
	for _, r := range Relationships {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown method relationship %q", s)
}

// String returns the JSON name of the relationship.
func (r MethodRelationship) String() string {
	return string(r)
}
