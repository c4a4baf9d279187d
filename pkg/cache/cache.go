// Package cache provides an optional Redis-backed cache for Stack Exchange
// API response bodies. Re-running an extraction within the TTL serves the
// leading pages from cache instead of spending API quota on them.
package cache

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Key identifies a cached API response.
type Key struct {
	// Endpoint is the API path, e.g. "/questions".
	Endpoint string

	// Query are the request's query parameters. The "key" parameter (the
	// API key) is never part of the cache identity: the same page fetched
	// with or without a key is the same page.
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: se:endpoint:param1=val1:param2=val2
func (k Key) String() string {
	parts := []string{"se"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			if name == "key" {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, name+"="+k.Query.Get(name))
		}
	}

	return strings.Join(parts, ":")
}

// Entry is a cached API response body.
type Entry struct {
	// Data is the raw response envelope.
	Data []byte `json:"data"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has passed its expiry time.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
