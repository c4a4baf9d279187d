package quota

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestTracker_AllowBeforeFirstObservation(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	if !tracker.Allow() {
		t.Error("Allow() = false before the first observed response, want true")
	}

	_, seen := tracker.State()
	if seen {
		t.Error("State() seen = true before any update, want false")
	}
}

func TestTracker_Update(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	tracker.Update(123, 300)

	state, seen := tracker.State()
	if !seen {
		t.Fatal("State() seen = false after update, want true")
	}
	if state.Remaining != 123 {
		t.Errorf("Remaining = %d, want 123", state.Remaining)
	}
	if state.Max != 300 {
		t.Errorf("Max = %d, want 300", state.Max)
	}
	if state.LastUpdate.IsZero() {
		t.Error("LastUpdate should be set")
	}
}

func TestTracker_AllowLogic(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{"healthy", 250, true},
		{"low but above critical", 20, true},
		{"at critical threshold", CriticalThreshold, true},
		{"below critical threshold", CriticalThreshold - 1, false},
		{"exhausted", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(zerolog.Nop())
			tracker.Update(tt.remaining, 300)

			if got := tracker.Allow(); got != tt.expected {
				t.Errorf("Allow() = %v, want %v (remaining=%d)", got, tt.expected, tt.remaining)
			}
		})
	}
}

func TestTracker_RecoversAfterQuotaRefresh(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	tracker.Update(2, 300)
	if tracker.Allow() {
		t.Fatal("Allow() = true with exhausted quota, want false")
	}

	// A fresh quota window makes the tracker permissive again.
	tracker.Update(300, 300)
	if !tracker.Allow() {
		t.Error("Allow() = false after quota refresh, want true")
	}
}
