package domain

import (
	"slices"
)

// SigningAuthority captures everything that decides who may sign the next
// update of a document: the capability invocation methods (by fragment, with
// their key material) and the controller set.
//
// Integration updates may change it; diff updates must leave it identical.
type SigningAuthority struct {
	// Methods maps each capability invocation fragment to its key material.
	// A reference that does not resolve maps to "".
	Methods map[string]string

	// Controllers is the sorted, de-duplicated controller set.
	Controllers []DID
}

// SigningAuthority computes the signing authority of the document.
func (d *Document) SigningAuthority() SigningAuthority {
	methods := make(map[string]string, len(d.CapabilityInvocation))
	for _, entry := range d.CapabilityInvocation {
		fragment := d.fragmentOf(entry.ID())
		if entry.Embedded != nil {
			methods[fragment] = entry.Embedded.KeyMaterial()
			continue
		}
		if m, err := d.findListed(entry.Reference); err == nil {
			methods[fragment] = m.KeyMaterial()
		} else {
			methods[fragment] = ""
		}
	}

	controllers := append([]DID(nil), d.Controller...)
	slices.Sort(controllers)
	controllers = slices.Compact(controllers)

	return SigningAuthority{Methods: methods, Controllers: controllers}
}

// Equal reports whether both authorities contain the same methods with the
// same key material and the same controllers.
func (a SigningAuthority) Equal(b SigningAuthority) bool {
	if len(a.Methods) != len(b.Methods) {
		return false
	}
	for fragment, key := range a.Methods {
		other, ok := b.Methods[fragment]
		if !ok || other != key {
			return false
		}
	}
	return slices.Equal(a.Controllers, b.Controllers)
}

// SameSigningAuthority reports whether a change from a to b keeps the signing
// authority intact. Diff validation and publication classification both use
// this single test.
func SameSigningAuthority(a, b *Document) bool {
	return a.SigningAuthority().Equal(b.SigningAuthority())
}
