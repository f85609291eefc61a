package domain

// ChainState holds the two cursors that locate a local document in the
// published chain: the last integration message and the last diff message.
//
// Both cursors are always replaced together. A null LastDiffMessageID means
// no diff has been published on top of the current integration message.
type ChainState struct {
	LastIntegrationMessageID MessageID `json:"lastIntegrationMessageId"`
	LastDiffMessageID        MessageID `json:"lastDiffMessageId"`
}

// NewChainState returns the all-null state of an identity that has never
// been published.
func NewChainState() ChainState {
	return ChainState{}
}

// IsNewIdentity reports whether nothing has been published yet.
func (s ChainState) IsNewIdentity() bool {
	return s.LastIntegrationMessageID.IsNull()
}

// DiffParent returns the message a new diff must reference: the last diff if
// one exists, otherwise the last integration message.
func (s ChainState) DiffParent() MessageID {
	if !s.LastDiffMessageID.IsNull() {
		return s.LastDiffMessageID
	}
	return s.LastIntegrationMessageID
}

// AfterIntegration returns the state following a published integration message.
func (s ChainState) AfterIntegration(id MessageID) ChainState {
	return ChainState{LastIntegrationMessageID: id}
}

// AfterDiff returns the state following a published diff message.
func (s ChainState) AfterDiff(id MessageID) ChainState {
	return ChainState{
		LastIntegrationMessageID: s.LastIntegrationMessageID,
		LastDiffMessageID:        id,
	}
}
