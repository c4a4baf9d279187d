// Package metrics provides the centralized Prometheus metrics registry for
// the extractor. All metrics are defined in their respective packages
// (stackexchange, extract, cache, quota) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the extractor.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/stackexchange):
//   - se_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - se_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - se_errors_total{class} (Counter): Errors by class (throttle, api, network, decode)
//   - se_throttle_waits_total (Counter): Throttle-violation waits performed
//   - se_throttle_wait_seconds (Histogram): Server-advertised wait durations
//   - se_cached_responses_total (Counter): Responses served from cache
//
// Retrieval Metrics (pkg/extract):
//   - se_pages_fetched_total (Counter): Question listing pages fetched
//   - se_questions_collected_total (Counter): Questions collected
//   - se_answers_resolved_total (Counter): Accepted answers resolved
//   - se_answer_chunks_skipped_total (Counter): Failed answer chunks skipped
//   - se_backoff_delays_total (Counter): Server-advised backoff delays honored
//
// Cache Metrics (pkg/cache):
//   - se_cache_hits_total (Counter): Cache hits
//   - se_cache_misses_total (Counter): Cache misses
//   - se_cache_errors_total{operation} (Counter): Cache operation errors
//   - se_cache_stored_bytes_total (Counter): Bytes written to the cache
//
// Quota Metrics (pkg/quota):
//   - se_quota_remaining (Gauge): Requests remaining in the quota window
//   - se_quota_blocks_total (Counter): Requests blocked on exhausted quota
//
// Example Prometheus Queries:
//
//   # Throttle pressure
//   rate(se_throttle_waits_total[5m])
//
//   # Cache hit rate
//   rate(se_cache_hits_total[5m]) /
//   (rate(se_cache_hits_total[5m]) + rate(se_cache_misses_total[5m]))
//
//   # Quota runway
//   se_quota_remaining
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(se_request_duration_seconds_bucket[5m]))
