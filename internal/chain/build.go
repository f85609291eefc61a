package chain

import (
	"errors"
	"fmt"

	"github.com/sufield/didchain/internal/domain"
)

// ErrNoValidGenesis indicates that none of the messages read for a DID forms
// a valid genesis entry.
var ErrNoValidGenesis = errors.New("no valid genesis document")

// Build reconstructs the chain of did from messages read off a ledger.
//
// Messages arrive in ledger order and may include spam: entries for other
// DIDs, orphans and forgeries. At every step the first message that extends
// the chain validly is taken and the rest are left for later steps, so
// invalid messages are skipped rather than failing the whole read. Diffs are
// layered on the final integration entry only.
func Build(did domain.DID, integration []*domain.ResolvedDocument, diffs []*domain.DiffMessage) (*DocumentChain, error) {
	c := &DocumentChain{}

	used := make([]bool, len(integration))
	for progressed := true; progressed; {
		progressed = false
		for i, entry := range integration {
			if used[i] || entry == nil || entry.Document == nil || entry.Document.ID != did {
				continue
			}
			if entry.PreviousMessageID() != c.IntegrationMessageID() {
				continue
			}
			if err := c.TryPushIntegration(entry); err != nil {
				continue
			}
			used[i] = true
			progressed = true
			break
		}
	}
	if c.integration.Len() == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoValidGenesis, did)
	}

	usedDiff := make([]bool, len(diffs))
	for progressed := true; progressed; {
		progressed = false
		for i, diff := range diffs {
			if usedDiff[i] || diff == nil || diff.PreviousMessageID != c.DiffMessageID() {
				continue
			}
			if err := c.TryPushDiff(diff); err != nil {
				continue
			}
			usedDiff[i] = true
			progressed = true
			break
		}
	}
	return c, nil
}
