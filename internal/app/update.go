package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/ports"
	"github.com/sufield/didchain/internal/signing"
)

// Update is a mutation of the working document. The set of updates is
// closed; apply them with Account.ApplyUpdate.
type Update interface {
	apply(ctx context.Context, a *Account, doc *domain.Document) error
}

// CreateMethod generates a key in storage and adds a verification method for
// it. Adding the method to CapabilityInvocation changes the signing
// authority and therefore publishes an integration update.
type CreateMethod struct {
	Fragment      string
	KeyType       signing.KeyType // defaults to Ed25519
	Relationships []domain.MethodRelationship
}

func (u CreateMethod) apply(ctx context.Context, a *Account, doc *domain.Document) error {
	fragment, err := domain.Fragment(doc.ID, u.Fragment)
	if err != nil {
		return err
	}
	if doc.HasFragment(fragment) {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateFragment, fragment)
	}
	kt := u.KeyType
	if kt == "" {
		kt = signing.KeyTypeEd25519
	}

	// A key left at the temporary location by an interrupted create is stale.
	temp := ports.TemporaryKeyLocation(kt, fragment)
	if err := a.storage.KeyDelete(ctx, a.id, temp); err != nil && !errors.Is(err, ports.ErrKeyNotFound) {
		return err
	}
	public, err := a.storage.KeyGenerate(ctx, a.id, temp)
	if err != nil {
		return err
	}
	final := ports.NewKeyLocation(kt, fragment, public)
	if err := a.storage.KeyMove(ctx, a.id, temp, final); err != nil {
		_ = a.storage.KeyDelete(ctx, a.id, temp)
		return err
	}

	if err := doc.InsertMethod(signing.NewMethod(doc.ID, fragment, kt, public), u.Relationships...); err != nil {
		_ = a.storage.KeyDelete(ctx, a.id, final)
		return err
	}
	return nil
}

// DeleteMethod removes a method from the document and every relationship.
// Its key is deleted after the next successful publish.
type DeleteMethod struct {
	Fragment string
}

func (u DeleteMethod) apply(_ context.Context, a *Account, doc *domain.Document) error {
	m, err := doc.ResolveMethod(u.Fragment)
	if err != nil {
		return err
	}
	loc, locErr := methodKeyLocation(doc, m)
	if err := doc.RemoveMethod(u.Fragment); err != nil {
		return err
	}
	if locErr == nil {
		a.retired = append(a.retired, loc)
	}
	return nil
}

// AttachMethodRelationship references a listed method from relationships.
type AttachMethodRelationship struct {
	Fragment      string
	Relationships []domain.MethodRelationship
}

func (u AttachMethodRelationship) apply(_ context.Context, _ *Account, doc *domain.Document) error {
	for _, rel := range u.Relationships {
		if err := doc.AttachRelationship(u.Fragment, rel); err != nil {
			return err
		}
	}
	return nil
}

// DetachMethodRelationship removes references to a listed method.
type DetachMethodRelationship struct {
	Fragment      string
	Relationships []domain.MethodRelationship
}

func (u DetachMethodRelationship) apply(_ context.Context, _ *Account, doc *domain.Document) error {
	for _, rel := range u.Relationships {
		if err := doc.DetachRelationship(u.Fragment, rel); err != nil {
			return err
		}
	}
	return nil
}

// CreateService adds a service endpoint.
type CreateService struct {
	Fragment string
	Type     string
	Endpoint string
}

func (u CreateService) apply(_ context.Context, _ *Account, doc *domain.Document) error {
	fragment, err := domain.Fragment(doc.ID, u.Fragment)
	if err != nil {
		return err
	}
	return doc.InsertService(domain.Service{
		ID:              doc.ID.Join(fragment),
		Type:            u.Type,
		ServiceEndpoint: u.Endpoint,
	})
}

// DeleteService removes a service endpoint.
type DeleteService struct {
	Fragment string
}

func (u DeleteService) apply(_ context.Context, _ *Account, doc *domain.Document) error {
	return doc.RemoveService(u.Fragment)
}

// SetController replaces the controllers of the document. Controllers are
// part of the signing authority.
type SetController struct {
	Controllers []domain.DID
}

func (u SetController) apply(_ context.Context, _ *Account, doc *domain.Document) error {
	var controllers []domain.DID
	for _, c := range u.Controllers {
		did, err := domain.ParseDID(string(c))
		if err != nil {
			return err
		}
		controllers = append(controllers, did)
	}
	doc.Controller = controllers
	return nil
}

// SetAlsoKnownAs replaces the alternative identifiers of the subject.
type SetAlsoKnownAs struct {
	URIs []string
}

func (u SetAlsoKnownAs) apply(_ context.Context, _ *Account, doc *domain.Document) error {
	var uris []string
	for _, s := range u.URIs {
		parsed, err := url.Parse(s)
		if err != nil || parsed.Scheme == "" {
			return fmt.Errorf("%w: alsoKnownAs entry %q is not an absolute URI", domain.ErrInvalidDocument, s)
		}
		uris = append(uris, s)
	}
	doc.AlsoKnownAs = uris
	return nil
}

// SetProperty sets a custom document property; a nil Value removes it.
type SetProperty struct {
	Key   string
	Value any
}

func (u SetProperty) apply(_ context.Context, _ *Account, doc *domain.Document) error {
	return doc.SetProperty(u.Key, u.Value)
}
