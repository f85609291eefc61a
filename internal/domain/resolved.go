package domain

// ResolvedDocument is a document together with the chain position it was
// read from: the integration message that carries it and the last diff
// message folded into it (null when no diff was applied).
type ResolvedDocument struct {
	Document             *Document `json:"document"`
	IntegrationMessageID MessageID `json:"integrationMessageId"`
	DiffMessageID        MessageID `json:"diffMessageId"`
}

// Clone returns a deep copy.
func (r *ResolvedDocument) Clone() *ResolvedDocument {
	if r == nil {
		return nil
	}
	return &ResolvedDocument{
		Document:             r.Document.Clone(),
		IntegrationMessageID: r.IntegrationMessageID,
		DiffMessageID:        r.DiffMessageID,
	}
}

// PreviousMessageID returns the integration message this document supersedes.
func (r *ResolvedDocument) PreviousMessageID() MessageID {
	return r.Document.Metadata.PreviousMessageID
}

// Position returns the cursors pointing at this resolved document.
func (r *ResolvedDocument) Position() ChainState {
	return ChainState{
		LastIntegrationMessageID: r.IntegrationMessageID,
		LastDiffMessageID:        r.DiffMessageID,
	}
}
