// Package dto holds the JSON bodies exchanged between the ledger API and its
// HTTP client.
package dto

import (
	"github.com/sufield/didchain/internal/domain"
)

// PublishResponse is returned for every accepted message.
type PublishResponse struct {
	MessageID domain.MessageID `json:"messageId"`
}

// IntegrationMessage is a stored integration message.
type IntegrationMessage struct {
	MessageID domain.MessageID `json:"messageId"`
	Document  *domain.Document `json:"document"`
}

// DiffMessage is a stored diff message. The ledger-assigned id is carried
// next to the message because it is not part of the signed body.
type DiffMessage struct {
	MessageID domain.MessageID    `json:"messageId"`
	Message   *domain.DiffMessage `json:"message"`
}

// Messages lists every message stored for a DID, in arrival order. They are
// not validated; readers rebuild the chain themselves.
type Messages struct {
	DID          domain.DID           `json:"did"`
	Integrations []IntegrationMessage `json:"integrations"`
	Diffs        []DiffMessage        `json:"diffs"`
}

// NewMessages converts ledger entries to their wire form.
func NewMessages(did domain.DID, integration []*domain.ResolvedDocument, diffs []*domain.DiffMessage) Messages {
	out := Messages{
		DID:          did,
		Integrations: make([]IntegrationMessage, 0, len(integration)),
		Diffs:        make([]DiffMessage, 0, len(diffs)),
	}
	for _, entry := range integration {
		out.Integrations = append(out.Integrations, IntegrationMessage{
			MessageID: entry.IntegrationMessageID,
			Document:  entry.Document,
		})
	}
	for _, diff := range diffs {
		out.Diffs = append(out.Diffs, DiffMessage{MessageID: diff.MessageID, Message: diff})
	}
	return out
}

// Entries converts the wire form back to ledger entries. Entries without a
// body are dropped.
func (m Messages) Entries() ([]*domain.ResolvedDocument, []*domain.DiffMessage) {
	integration := make([]*domain.ResolvedDocument, 0, len(m.Integrations))
	for _, msg := range m.Integrations {
		if msg.Document == nil {
			continue
		}
		integration = append(integration, &domain.ResolvedDocument{
			Document:             msg.Document,
			IntegrationMessageID: msg.MessageID,
		})
	}
	diffs := make([]*domain.DiffMessage, 0, len(m.Diffs))
	for _, msg := range m.Diffs {
		if msg.Message == nil {
			continue
		}
		diffs = append(diffs, msg.Message.WithMessageID(msg.MessageID))
	}
	return integration, diffs
}

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}

// Notification is pushed over the watch stream for every message published
// for DID.
type Notification struct {
	DID       domain.DID       `json:"did"`
	MessageID domain.MessageID `json:"messageId"`
}
