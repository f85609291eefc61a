package debug

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFaultProfile_OneShot(t *testing.T) {
	tests := []struct {
		name     string
		setFault func(*FaultProfile)
		checkFn  func(*FaultProfile) bool
	}{
		{
			name:     "FailNextPublish",
			setFault: func(f *FaultProfile) { f.SetFailNextPublish(true) },
			checkFn:  func(f *FaultProfile) bool { return f.ShouldFailPublish() },
		},
		{
			name:     "RejectNextPublish",
			setFault: func(f *FaultProfile) { f.SetRejectNextPublish(true) },
			checkFn:  func(f *FaultProfile) bool { return f.ShouldRejectPublish() },
		},
		{
			name:     "FailNextRead",
			setFault: func(f *FaultProfile) { f.SetFailNextRead(true) },
			checkFn:  func(f *FaultProfile) bool { return f.ShouldFailRead() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &FaultProfile{}
			tt.setFault(f)

			if !tt.checkFn(f) {
				t.Errorf("First check should return true (fault enabled)")
			}
			if tt.checkFn(f) {
				t.Errorf("Second check should return false (fault consumed)")
			}
		})
	}
}

func TestFaultProfile_NilInjectsNothing(t *testing.T) {
	var f *FaultProfile
	if f.ShouldFailPublish() || f.ShouldRejectPublish() || f.ShouldFailRead() {
		t.Error("nil profile must not inject faults")
	}
	if d := f.GetAndClearDelay(); d != 0 {
		t.Errorf("nil profile must not delay, got %v", d)
	}
}

func TestFaultProfile_DelayValidation(t *testing.T) {
	tests := []struct {
		name        string
		delay       int
		wantErr     bool
		errContains string
	}{
		{"valid positive", 5, false, ""},
		{"valid zero", 0, false, ""},
		{"invalid negative", -1, true, "non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &FaultProfile{}
			err := f.SetDelayNextPublish(tt.delay)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for delay=%d, got nil", tt.delay)
				} else if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Expected error containing %q, got: %v", tt.errContains, err)
				}
			} else if err != nil {
				t.Errorf("Expected no error for delay=%d, got: %v", tt.delay, err)
			}
		})
	}
}

func TestFaultProfile_GetAndClearDelay(t *testing.T) {
	f := &FaultProfile{}
	if err := f.SetDelayNextPublish(10); err != nil {
		t.Fatalf("Failed to set delay: %v", err)
	}

	if delay := f.GetAndClearDelay(); delay != 10*time.Millisecond {
		t.Errorf("Expected delay=10ms, got %v", delay)
	}
	if delay := f.GetAndClearDelay(); delay != 0 {
		t.Errorf("Expected delay=0 after clear, got %v", delay)
	}
}

func TestFaultProfile_ApplyAndReset(t *testing.T) {
	f := &FaultProfile{}
	yes, delay := true, 25

	if err := f.Apply(FaultRequest{FailNextPublish: &yes, FailNextRead: &yes, DelayNextPublishMillis: &delay}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	snapshot := f.Snapshot()
	if len(snapshot) != 4 {
		t.Errorf("Expected 4 keys in snapshot, got %d", len(snapshot))
	}
	if val, ok := snapshot["fail_next_publish"].(bool); !ok || !val {
		t.Error("Snapshot should contain fail_next_publish=true")
	}
	if val, ok := snapshot["reject_next_publish"].(bool); !ok || val {
		t.Error("Snapshot should contain reject_next_publish=false")
	}
	if val, ok := snapshot["delay_next_publish_millis"].(int); !ok || val != 25 {
		t.Errorf("Snapshot should contain delay_next_publish_millis=25, got %v", val)
	}

	negative := -3
	if err := f.Apply(FaultRequest{DelayNextPublishMillis: &negative}); err == nil {
		t.Error("Apply should reject a negative delay")
	}

	f.Reset()
	if f.ShouldFailPublish() || f.ShouldFailRead() || f.GetAndClearDelay() != 0 {
		t.Error("Reset should clear every fault")
	}
}

func TestFaultProfile_Concurrency(t *testing.T) {
	f := &FaultProfile{}
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			f.SetFailNextPublish(n%2 == 0)
			_ = f.SetDelayNextPublish(n)
			f.Reset()
		}(i)
		go func() {
			defer wg.Done()
			_ = f.ShouldFailPublish()
			_ = f.GetAndClearDelay()
			if len(f.Snapshot()) != 4 {
				t.Errorf("Expected 4 keys in snapshot")
			}
		}()
	}

	wg.Wait()
}
