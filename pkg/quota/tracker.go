package quota

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	seQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "se_quota_remaining",
		Help: "Requests remaining in the current API quota window",
	})

	seQuotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_quota_blocks_total",
		Help: "Total number of requests blocked due to exhausted quota",
	})
)

// Tracker holds quota state for a single extraction run. The run is
// single-process and single-threaded, so the state lives in memory; the
// mutex only guards against future callers sharing a Client.
type Tracker struct {
	mu     sync.Mutex
	state  State
	seen   bool
	logger zerolog.Logger
}

// NewTracker creates a quota tracker. Until the first Update the tracker
// assumes a healthy quota and allows all requests.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// Update records quota values from a response envelope.
func (t *Tracker) Update(remaining, max int) {
	t.mu.Lock()
	t.state = State{Remaining: remaining, Max: max, LastUpdate: time.Now()}
	t.seen = true
	state := t.state
	t.mu.Unlock()

	seQuotaRemaining.Set(float64(remaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("quota_remaining", remaining).
			Int("quota_max", max).
			Msg("API quota critical - further requests will be blocked")
	case state.NeedsWarning():
		t.logger.Warn().
			Int("quota_remaining", remaining).
			Int("quota_max", max).
			Msg("API quota running low")
	default:
		t.logger.Debug().
			Int("quota_remaining", remaining).
			Int("quota_max", max).
			Msg("API quota updated")
	}
}

// State returns a copy of the current quota state and whether any response
// has been observed yet.
func (t *Tracker) State() (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.seen
}

// Allow reports whether a new request may be issued. Before the first
// observed response it always returns true.
func (t *Tracker) Allow() bool {
	t.mu.Lock()
	state, seen := t.state, t.seen
	t.mu.Unlock()

	if !seen {
		return true
	}
	if state.NeedsCriticalBlock() {
		seQuotaBlocksTotal.Inc()
		t.logger.Error().
			Int("quota_remaining", state.Remaining).
			Msg("Request blocked: API quota exhausted")
		return false
	}
	return true
}
