package debug

import (
	"fmt"
	"sync"
	"time"
)

// FaultProfile defines ledger faults that can be injected for testing.
// All faults are one-shot (consumed after check) so a test sees exactly the
// failure it asked for and nothing afterwards.
//
// A nil *FaultProfile injects nothing.
type FaultProfile struct {
	mu sync.Mutex

	// FailNextPublish makes the next publish fail after the ledger
	// accepted the message (one-shot)
	FailNextPublish bool

	// RejectNextPublish makes the next publish fail before anything is
	// stored (one-shot)
	RejectNextPublish bool

	// FailNextRead makes the next chain read fail (one-shot)
	FailNextRead bool

	// DelayNextPublishMillis delays the next publish (one-shot, must be >= 0)
	DelayNextPublishMillis int
}

// Faults is the global fault profile used by the ledger daemon
var Faults = &FaultProfile{}

// SetFailNextPublish enables/disables post-commit publish failure
func (f *FaultProfile) SetFailNextPublish(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailNextPublish = enabled
}

// ShouldFailPublish checks and consumes the post-commit failure flag
func (f *FaultProfile) ShouldFailPublish() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNextPublish {
		f.FailNextPublish = false // One-shot
		return true
	}
	return false
}

// SetRejectNextPublish enables/disables publish rejection
func (f *FaultProfile) SetRejectNextPublish(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RejectNextPublish = enabled
}

// ShouldRejectPublish checks and consumes the rejection flag
func (f *FaultProfile) ShouldRejectPublish() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RejectNextPublish {
		f.RejectNextPublish = false // One-shot
		return true
	}
	return false
}

// SetFailNextRead enables/disables read failure
func (f *FaultProfile) SetFailNextRead(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailNextRead = enabled
}

// ShouldFailRead checks and consumes the read failure flag
func (f *FaultProfile) ShouldFailRead() bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNextRead {
		f.FailNextRead = false // One-shot
		return true
	}
	return false
}

// SetDelayNextPublish sets the delay of the next publish.
// Returns an error if millis is negative.
func (f *FaultProfile) SetDelayNextPublish(millis int) error {
	if millis < 0 {
		return fmt.Errorf("delay must be non-negative, got %d", millis)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DelayNextPublishMillis = millis
	return nil
}

// GetAndClearDelay gets and clears the delay setting
func (f *FaultProfile) GetAndClearDelay() time.Duration {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delay := f.DelayNextPublishMillis
	f.DelayNextPublishMillis = 0
	return time.Duration(delay) * time.Millisecond
}

// Reset clears all fault flags
func (f *FaultProfile) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailNextPublish = false
	f.RejectNextPublish = false
	f.FailNextRead = false
	f.DelayNextPublishMillis = 0
}

// Snapshot returns the current state of all faults as a map.
// The snapshot is a point-in-time view and won't reflect subsequent changes.
func (f *FaultProfile) Snapshot() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]any{
		"fail_next_publish":         f.FailNextPublish,
		"reject_next_publish":       f.RejectNextPublish,
		"fail_next_read":            f.FailNextRead,
		"delay_next_publish_millis": f.DelayNextPublishMillis,
	}
}

// FaultRequest is a fault injection request. Nil fields are left unchanged.
type FaultRequest struct {
	FailNextPublish        *bool `json:"fail_next_publish,omitempty"`
	RejectNextPublish      *bool `json:"reject_next_publish,omitempty"`
	FailNextRead           *bool `json:"fail_next_read,omitempty"`
	DelayNextPublishMillis *int  `json:"delay_next_publish_millis,omitempty"`
}

// Apply applies every set field of req to f.
func (f *FaultProfile) Apply(req FaultRequest) error {
	if req.DelayNextPublishMillis != nil {
		if err := f.SetDelayNextPublish(*req.DelayNextPublishMillis); err != nil {
			return err
		}
	}
	if req.FailNextPublish != nil {
		f.SetFailNextPublish(*req.FailNextPublish)
	}
	if req.RejectNextPublish != nil {
		f.SetRejectNextPublish(*req.RejectNextPublish)
	}
	if req.FailNextRead != nil {
		f.SetFailNextRead(*req.FailNextRead)
	}
	return nil
}
