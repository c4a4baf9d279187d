package quota

import (
	"testing"
	"time"
)

func TestState_Thresholds(t *testing.T) {
	tests := []struct {
		name          string
		remaining     int
		expectBlock   bool
		expectWarning bool
	}{
		{
			name:          "healthy",
			remaining:     250,
			expectBlock:   false,
			expectWarning: false,
		},
		{
			name:          "at warning threshold",
			remaining:     WarningThreshold,
			expectBlock:   false,
			expectWarning: false,
		},
		{
			name:          "below warning threshold",
			remaining:     WarningThreshold - 1,
			expectBlock:   false,
			expectWarning: true,
		},
		{
			name:          "at critical threshold",
			remaining:     CriticalThreshold,
			expectBlock:   false,
			expectWarning: true,
		},
		{
			name:          "below critical threshold",
			remaining:     CriticalThreshold - 1,
			expectBlock:   true,
			expectWarning: false,
		},
		{
			name:          "exhausted",
			remaining:     0,
			expectBlock:   true,
			expectWarning: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{
				Remaining:  tt.remaining,
				Max:        300,
				LastUpdate: time.Now(),
			}

			if got := state.NeedsCriticalBlock(); got != tt.expectBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v (remaining=%d)", got, tt.expectBlock, tt.remaining)
			}
			if got := state.NeedsWarning(); got != tt.expectWarning {
				t.Errorf("NeedsWarning() = %v, want %v (remaining=%d)", got, tt.expectWarning, tt.remaining)
			}
		})
	}
}

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		age      time.Duration
		maxAge   time.Duration
		expected bool
	}{
		{"fresh", time.Second, time.Minute, false},
		{"stale", 2 * time.Minute, time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{LastUpdate: time.Now().Add(-tt.age)}
			if got := state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale(%v) = %v, want %v", tt.maxAge, got, tt.expected)
			}
		})
	}
}
