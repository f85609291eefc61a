package domain

import "fmt"

// Service is a service endpoint advertised by a DID Document.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Validate checks the service has every required field.
func (s *Service) Validate() error {
	if s.ID == "" || s.Type == "" || s.ServiceEndpoint == "" {
		return fmt.Errorf("%w: service requires id, type and serviceEndpoint", ErrInvalidDocument)
	}
	return nil
}
