package stackexchange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Common errors returned by the client.
var (
	// ErrThrottleRetriesExhausted is returned when MaxThrottleRetries is set
	// and the server keeps throttling past the cap.
	ErrThrottleRetriesExhausted = errors.New("throttle retries exhausted")

	// ErrQuotaExhausted is returned when the remaining request quota has
	// fallen below the critical threshold and requests are blocked.
	ErrQuotaExhausted = errors.New("api quota exhausted")

	// ErrTooManyIDs is returned when a batch answer lookup is asked for more
	// ids than the API accepts in one call.
	ErrTooManyIDs = errors.New("too many ids for one request")
)

// ErrorName values the client gives special treatment.
const errorNameThrottle = "throttle_violation"

// APIError is a non-throttle error response from the Stack Exchange API.
type APIError struct {
	StatusCode   int
	ErrorID      int
	ErrorName    string
	ErrorMessage string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.ErrorName != "" {
		return fmt.Sprintf("stackexchange %s error (status %d, id %d): %s",
			e.ErrorName, e.StatusCode, e.ErrorID, e.ErrorMessage)
	}
	return fmt.Sprintf("stackexchange error (status %d)", e.StatusCode)
}

// IsThrottle reports whether an error envelope signals a throttle violation.
func (e *Envelope) IsThrottle() bool {
	return e.ErrorName == errorNameThrottle
}

// throttleWaitPattern matches the wait hint the API embeds in throttle
// violation messages, e.g. "too many requests from this IP, more requests
// will be available in 42 seconds".
var throttleWaitPattern = regexp.MustCompile(`available in (\d+) seconds`)

// parseThrottleWait extracts the advertised wait duration from a throttle
// violation message. ok is false when the message carries no parseable hint,
// in which case callers fall back to a fixed wait.
func parseThrottleWait(msg string) (time.Duration, bool) {
	m := throttleWaitPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
