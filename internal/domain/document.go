package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContextV1 is the JSON-LD context of every document.
const ContextV1 = "https://www.w3.org/ns/did/v1"

// DocumentMetadata is the chain bookkeeping carried inside a document.
//
// PreviousMessageID links an integration document to the integration message
// it supersedes; it is null for the genesis document.
type DocumentMetadata struct {
	Created           time.Time `json:"created"`
	Updated           time.Time `json:"updated"`
	PreviousMessageID MessageID `json:"previousMessageId"`
}

// Document is a DID Document.
//
// Documents are plain values owned by exactly one holder (a chain entry or an
// account). Use Clone before handing a document to another owner.
type Document struct {
	Context              []string             `json:"@context"`
	ID                   DID                  `json:"id"`
	Controller           []DID                `json:"controller,omitempty"`
	AlsoKnownAs          []string             `json:"alsoKnownAs,omitempty"`
	VerificationMethod   []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []MethodRef          `json:"authentication,omitempty"`
	AssertionMethod      []MethodRef          `json:"assertionMethod,omitempty"`
	KeyAgreement         []MethodRef          `json:"keyAgreement,omitempty"`
	CapabilityDelegation []MethodRef          `json:"capabilityDelegation,omitempty"`
	CapabilityInvocation []MethodRef          `json:"capabilityInvocation,omitempty"`
	Service              []Service            `json:"service,omitempty"`
	Properties           map[string]any       `json:"properties,omitempty"`
	Metadata             DocumentMetadata     `json:"metadata"`
	Proof                *Proof               `json:"proof,omitempty"`
}

// Timestamp returns the current time at the precision stored in metadata.
func Timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// NewDocument builds a genesis document whose only method is embedded in the
// capability invocation relationship.
func NewDocument(id DID, signer VerificationMethod, now time.Time) *Document {
	return &Document{
		Context:              []string{ContextV1},
		ID:                   id,
		CapabilityInvocation: []MethodRef{EmbedMethod(signer)},
		Metadata: DocumentMetadata{
			Created: now,
			Updated: now,
		},
	}
}

// Validate checks structural invariants: a well-formed id, valid methods,
// unique fragments, resolvable references and a non-empty capability
// invocation set.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if _, err := ParseDID(string(d.ID)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	seen := make(map[string]bool)
	claim := func(id string) error {
		fragment, err := Fragment(d.ID, id)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if seen[fragment] {
			return fmt.Errorf("%w: %q", ErrDuplicateFragment, fragment)
		}
		seen[fragment] = true
		return nil
	}

	for i := range d.VerificationMethod {
		if err := d.VerificationMethod[i].Validate(); err != nil {
			return err
		}
		if err := claim(d.VerificationMethod[i].ID); err != nil {
			return err
		}
	}
	for _, rel := range Relationships {
		for _, ref := range d.Relationship(rel) {
			if ref.Embedded == nil {
				if _, err := d.findListed(ref.Reference); err != nil {
					return fmt.Errorf("%w: %s references %q: %v", ErrInvalidDocument, rel, ref.Reference, err)
				}
				continue
			}
			if err := ref.Embedded.Validate(); err != nil {
				return err
			}
			if err := claim(ref.Embedded.ID); err != nil {
				return err
			}
		}
	}
	for i := range d.Service {
		if err := d.Service[i].Validate(); err != nil {
			return err
		}
		if err := claim(d.Service[i].ID); err != nil {
			return err
		}
	}
	if len(d.CapabilityInvocation) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, ErrLastSigningMethod)
	}
	for key, value := range d.Properties {
		if containsNull(value) {
			return fmt.Errorf("%w: property %q holds a null value", ErrInvalidDocument, key)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Context = append([]string(nil), d.Context...)
	out.Controller = append([]DID(nil), d.Controller...)
	out.AlsoKnownAs = append([]string(nil), d.AlsoKnownAs...)
	out.VerificationMethod = append([]VerificationMethod(nil), d.VerificationMethod...)
	out.Authentication = cloneRefs(d.Authentication)
	out.AssertionMethod = cloneRefs(d.AssertionMethod)
	out.KeyAgreement = cloneRefs(d.KeyAgreement)
	out.CapabilityDelegation = cloneRefs(d.CapabilityDelegation)
	out.CapabilityInvocation = cloneRefs(d.CapabilityInvocation)
	out.Service = append([]Service(nil), d.Service...)
	if d.Properties != nil {
		out.Properties = cloneValue(d.Properties).(map[string]any)
	}
	out.Proof = d.Proof.Clone()
	return &out
}

// Unsigned returns a deep copy without the proof.
func (d *Document) Unsigned() *Document {
	out := d.Clone()
	out.Proof = nil
	return out
}

// CanonicalJSON returns the deterministic JSON encoding of the unsigned
// document. Struct fields encode in declaration order and map keys sorted,
// so equal documents always produce equal bytes.
func (d *Document) CanonicalJSON() ([]byte, error) {
	return json.Marshal(d.Unsigned())
}

// EqualContent reports whether two documents are equal ignoring their proofs.
func (d *Document) EqualContent(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	a, errA := d.CanonicalJSON()
	b, errB := other.CanonicalJSON()
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}

// Relationship returns the entries of rel. The slice is owned by the document.
func (d *Document) Relationship(rel MethodRelationship) []MethodRef {
	switch rel {
	case Authentication:
		return d.Authentication
	case AssertionMethod:
		return d.AssertionMethod
	case KeyAgreement:
		return d.KeyAgreement
	case CapabilityDelegation:
		return d.CapabilityDelegation
	case CapabilityInvocation:
		return d.CapabilityInvocation
	}
	return nil
}

func (d *Document) setRelationship(rel MethodRelationship, refs []MethodRef) {
	switch rel {
	case Authentication:
		d.Authentication = refs
	case AssertionMethod:
		d.AssertionMethod = refs
	case KeyAgreement:
		d.KeyAgreement = refs
	case CapabilityDelegation:
		d.CapabilityDelegation = refs
	case CapabilityInvocation:
		d.CapabilityInvocation = refs
	}
}

// HasFragment reports whether any method or service uses fragment.
func (d *Document) HasFragment(fragment string) bool {
	if _, err := d.ResolveMethod(fragment); err == nil {
		return true
	}
	_, err := d.ResolveService(fragment)
	return err == nil
}

// ResolveMethod finds a method by DID URL or fragment, searching the
// verificationMethod list and every relationship's embedded methods.
func (d *Document) ResolveMethod(ref string) (*VerificationMethod, error) {
	if m, err := d.findListed(ref); err == nil {
		return m, nil
	}
	fragment, err := Fragment(d.ID, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMethodNotFound, err)
	}
	for _, rel := range Relationships {
		for _, entry := range d.Relationship(rel) {
			if entry.Embedded != nil && d.fragmentOf(entry.Embedded.ID) == fragment {
				m := *entry.Embedded
				return &m, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, ref)
}

// ResolveMethodIn finds a method that is part of relationship rel.
//
// Returns ErrMethodNotFound if the method does not exist at all, and
// ErrMethodMissingRelationship if it exists outside rel.
func (d *Document) ResolveMethodIn(ref string, rel MethodRelationship) (*VerificationMethod, error) {
	fragment, err := Fragment(d.ID, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMethodNotFound, err)
	}
	for _, entry := range d.Relationship(rel) {
		if d.fragmentOf(entry.ID()) != fragment {
			continue
		}
		if entry.Embedded != nil {
			m := *entry.Embedded
			return &m, nil
		}
		return d.findListed(entry.Reference)
	}
	if _, err := d.ResolveMethod(ref); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %q is not in %s", ErrMethodMissingRelationship, ref, rel)
}

// ResolveService finds a service by DID URL or fragment.
func (d *Document) ResolveService(ref string) (*Service, error) {
	fragment, err := Fragment(d.ID, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}
	for i := range d.Service {
		if d.fragmentOf(d.Service[i].ID) == fragment {
			s := d.Service[i]
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, ref)
}

// Methods returns every method of the document, listed methods first.
func (d *Document) Methods() []VerificationMethod {
	out := append([]VerificationMethod(nil), d.VerificationMethod...)
	for _, rel := range Relationships {
		for _, entry := range d.Relationship(rel) {
			if entry.Embedded != nil {
				out = append(out, *entry.Embedded)
			}
		}
	}
	return out
}

// InsertMethod adds m to the verificationMethod list and references it from rels.
func (d *Document) InsertMethod(m VerificationMethod, rels ...MethodRelationship) error {
	if err := m.Validate(); err != nil {
		return err
	}
	fragment, err := Fragment(d.ID, m.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMethod, err)
	}
	if d.HasFragment(fragment) {
		return fmt.Errorf("%w: %q", ErrDuplicateFragment, fragment)
	}
	d.VerificationMethod = append(d.VerificationMethod, m)
	for _, rel := range rels {
		d.setRelationship(rel, append(d.Relationship(rel), ReferenceMethod(m.ID)))
	}
	return nil
}

// RemoveMethod deletes a method from the list and from every relationship.
// The capability invocation set may not become empty.
func (d *Document) RemoveMethod(ref string) error {
	if _, err := d.ResolveMethod(ref); err != nil {
		return err
	}
	fragment := d.fragmentOf(ref)

	invocation := filterRefs(d.CapabilityInvocation, func(r MethodRef) bool {
		return d.fragmentOf(r.ID()) != fragment
	})
	if len(invocation) == 0 {
		return ErrLastSigningMethod
	}

	methods := d.VerificationMethod[:0:0]
	for _, m := range d.VerificationMethod {
		if d.fragmentOf(m.ID) != fragment {
			methods = append(methods, m)
		}
	}
	d.VerificationMethod = methods
	for _, rel := range Relationships {
		d.setRelationship(rel, filterRefs(d.Relationship(rel), func(r MethodRef) bool {
			return d.fragmentOf(r.ID()) != fragment
		}))
	}
	return nil
}

// AttachRelationship references a listed method from rel. Attaching an
// already attached relationship is a no-op.
func (d *Document) AttachRelationship(ref string, rel MethodRelationship) error {
	m, err := d.findListed(ref)
	if err != nil {
		if _, embeddedErr := d.ResolveMethod(ref); embeddedErr == nil {
			return fmt.Errorf("%w: embedded method %q cannot be attached", ErrInvalidMethod, ref)
		}
		return err
	}
	fragment := d.fragmentOf(m.ID)
	for _, entry := range d.Relationship(rel) {
		if d.fragmentOf(entry.ID()) == fragment {
			return nil
		}
	}
	d.setRelationship(rel, append(d.Relationship(rel), ReferenceMethod(m.ID)))
	return nil
}

// DetachRelationship removes a reference to a listed method from rel.
// Detaching a relationship that is not attached is a no-op.
func (d *Document) DetachRelationship(ref string, rel MethodRelationship) error {
	m, err := d.findListed(ref)
	if err != nil {
		return err
	}
	fragment := d.fragmentOf(m.ID)
	kept := filterRefs(d.Relationship(rel), func(r MethodRef) bool {
		return r.Embedded != nil || d.fragmentOf(r.Reference) != fragment
	})
	if rel == CapabilityInvocation && len(kept) == 0 {
		return ErrLastSigningMethod
	}
	d.setRelationship(rel, kept)
	return nil
}

// InsertService adds s. Its fragment must be unused.
func (d *Document) InsertService(s Service) error {
	if err := s.Validate(); err != nil {
		return err
	}
	fragment, err := Fragment(d.ID, s.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if d.HasFragment(fragment) {
		return fmt.Errorf("%w: %q", ErrDuplicateFragment, fragment)
	}
	d.Service = append(d.Service, s)
	return nil
}

// RemoveService deletes the service addressed by ref.
func (d *Document) RemoveService(ref string) error {
	if _, err := d.ResolveService(ref); err != nil {
		return err
	}
	fragment := d.fragmentOf(ref)
	kept := d.Service[:0:0]
	for _, s := range d.Service {
		if d.fragmentOf(s.ID) != fragment {
			kept = append(kept, s)
		}
	}
	d.Service = kept
	return nil
}

// SetProperty stores a custom property. The value is normalized through
// JSON so the document only ever holds JSON-typed values. A nil value
// deletes the property; a value with a null nested anywhere is rejected.
func (d *Document) SetProperty(key string, value any) error {
	if key == "" {
		return fmt.Errorf("%w: property key is required", ErrInvalidDocument)
	}
	if value == nil {
		delete(d.Properties, key)
		if len(d.Properties) == 0 {
			d.Properties = nil
		}
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: property %q: %v", ErrInvalidDocument, key, err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("%w: property %q: %v", ErrInvalidDocument, key, err)
	}
	if containsNull(normalized) {
		return fmt.Errorf("%w: property %q holds a null value", ErrInvalidDocument, key)
	}
	if d.Properties == nil {
		d.Properties = make(map[string]any)
	}
	d.Properties[key] = normalized
	return nil
}

// containsNull reports whether a JSON-typed value holds null at any depth.
// Diffs are merge patches, where null means delete, so a null could never
// reach the ledger intact.
func containsNull(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		for _, e := range t {
			if containsNull(e) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if containsNull(e) {
				return true
			}
		}
	}
	return false
}

func (d *Document) findListed(ref string) (*VerificationMethod, error) {
	fragment, err := Fragment(d.ID, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMethodNotFound, err)
	}
	for i := range d.VerificationMethod {
		if d.fragmentOf(d.VerificationMethod[i].ID) == fragment {
			m := d.VerificationMethod[i]
			return &m, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, ref)
}

// fragmentOf extracts a fragment, returning the input unchanged when it
// cannot be parsed so that comparisons simply fail.
func (d *Document) fragmentOf(ref string) string {
	fragment, err := Fragment(d.ID, ref)
	if err != nil {
		return ref
	}
	return fragment
}

func cloneRefs(refs []MethodRef) []MethodRef {
	if refs == nil {
		return nil
	}
	out := make([]MethodRef, len(refs))
	for i, r := range refs {
		if r.Embedded != nil {
			m := *r.Embedded
			out[i] = MethodRef{Embedded: &m}
		} else {
			out[i] = MethodRef{Reference: r.Reference}
		}
	}
	return out
}

func filterRefs(refs []MethodRef, keep func(MethodRef) bool) []MethodRef {
	var out []MethodRef
	for _, r := range refs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// cloneValue deep-copies JSON-typed values.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return val
	}
}
