// Package quota tracks the Stack Exchange API request quota and gates
// requests before the daily budget runs dry. Every successful response
// envelope carries quota_remaining and quota_max; the tracker keeps the most
// recent values and blocks new requests once the remainder drops below the
// critical threshold.
package quota

import (
	"time"
)

// Thresholds for quota decisions.
const (
	// CriticalThreshold blocks all requests when the remaining quota falls
	// below this value, keeping a small reserve for manual inspection.
	CriticalThreshold = 5

	// WarningThreshold triggers warning-level logging when the remaining
	// quota falls below this value.
	WarningThreshold = 50
)

// State is the most recently observed quota state.
type State struct {
	// Remaining is quota_remaining from the latest envelope.
	Remaining int `json:"remaining"`

	// Max is quota_max from the latest envelope.
	Max int `json:"max"`

	// LastUpdate is when this state was last refreshed from a response.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < CriticalThreshold
}

// NeedsWarning returns true if the quota is low but requests may proceed.
func (s *State) NeedsWarning() bool {
	return s.Remaining < WarningThreshold && !s.NeedsCriticalBlock()
}
