// Package stackexchange provides the Stack Exchange API client with
// throttle-aware retries, quota tracking, optional response caching, and
// Prometheus instrumentation.
package stackexchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qirunlin/nlp2/pkg/cache"
	"github.com/qirunlin/nlp2/pkg/quota"
)

// Prometheus metrics for API client operations.
var (
	seRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "se_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	seRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "se_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	seErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "se_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})

	seThrottleWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_throttle_waits_total",
		Help: "Total number of throttle-violation waits",
	})

	seThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "se_throttle_wait_seconds",
		Help:    "Server-advertised throttle wait durations",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	seCachedResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_cached_responses_total",
		Help: "Total API responses served from the response cache",
	})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassThrottle represents server-signaled rate-limit rejections.
	ErrorClassThrottle ErrorClass = "throttle"

	// ErrorClassAPI represents non-throttle API error envelopes.
	ErrorClassAPI ErrorClass = "api"

	// ErrorClassNetwork represents transport errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents malformed response bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// MaxIDsPerRequest is the largest id batch the /answers endpoint accepts.
const MaxIDsPerRequest = 100

// SleepFunc suspends the caller for d, returning early with the context's
// error if it is cancelled first.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, e.g. "https://api.stackexchange.com/2.3".
	BaseURL string

	// Site is the Stack Exchange site parameter.
	Site string

	// APIKey raises the request quota. Empty means unauthenticated mode
	// with the API's lower anonymous quota.
	APIKey string

	// PageSize is the page size for listings and batch lookups (1..100).
	PageSize int

	// UserAgent header sent with every request.
	UserAgent string

	// ThrottleFallback is the wait applied when a throttle violation
	// carries no parseable wait hint.
	ThrottleFallback time.Duration

	// MaxThrottleRetries caps consecutive throttle retries for one request.
	// 0 means retry forever; the server advertises exact wait times, so an
	// honest server always converges.
	MaxThrottleRetries int

	// Cache enables response caching when non-nil.
	Cache *cache.Manager

	// CacheTTL is how long cached response bodies stay valid.
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration targeting the public API.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "https://api.stackexchange.com/2.3",
		Site:             "stackoverflow",
		PageSize:         100,
		UserAgent:        "nlp2-soextract/1.0",
		ThrottleFallback: 60 * time.Second,
		CacheTTL:         15 * time.Minute,
	}
}

// Client is the Stack Exchange API client.
type Client struct {
	httpClient *http.Client
	config     Config
	quota      *quota.Tracker
	cache      *cache.Manager
	logger     zerolog.Logger
	sleep      SleepFunc
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.Site == "" {
		return nil, fmt.Errorf("site is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.PageSize > MaxIDsPerRequest {
		return nil, fmt.Errorf("page size must be <= %d (got %d)", MaxIDsPerRequest, cfg.PageSize)
	}
	if cfg.ThrottleFallback <= 0 {
		cfg.ThrottleFallback = 60 * time.Second
	}

	logger := log.With().Str("component", "se-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		quota:  quota.NewTracker(logger),
		cache:  cfg.Cache,
		logger: logger,
		sleep:  defaultSleep,
	}, nil
}

// Quota returns the client's quota tracker.
func (c *Client) Quota() *quota.Tracker {
	return c.quota
}

// Questions fetches one page of the question listing, newest first.
func (c *Client) Questions(ctx context.Context, query QuestionQuery) (*QuestionsPage, error) {
	if query.Tag == "" {
		return nil, fmt.Errorf("tag is required")
	}

	params := url.Values{}
	params.Set("order", "desc")
	params.Set("sort", "creation")
	params.Set("tagged", query.Tag)
	params.Set("site", c.config.Site)
	params.Set("pagesize", strconv.Itoa(c.config.PageSize))
	params.Set("filter", "withbody")
	if c.config.APIKey != "" {
		params.Set("key", c.config.APIKey)
	}
	if query.Max > 0 {
		params.Set("max", strconv.FormatInt(query.Max, 10))
	}

	env, err := c.fetchEnvelope(ctx, "/questions", "/questions", params)
	if err != nil {
		return nil, err
	}

	var items []Question
	if len(env.Items) > 0 {
		if err := json.Unmarshal(env.Items, &items); err != nil {
			seErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}

	return &QuestionsPage{
		Items:   items,
		Backoff: env.BackoffDuration(),
		HasMore: env.HasMore,
	}, nil
}

// Answers fetches up to MaxIDsPerRequest answers by id in one call.
func (c *Client) Answers(ctx context.Context, ids []int64) (*AnswersPage, error) {
	if len(ids) == 0 {
		return &AnswersPage{}, nil
	}
	if len(ids) > MaxIDsPerRequest {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyIDs, len(ids), MaxIDsPerRequest)
	}

	params := url.Values{}
	params.Set("site", c.config.Site)
	params.Set("pagesize", strconv.Itoa(c.config.PageSize))
	params.Set("filter", "withbody")
	if c.config.APIKey != "" {
		params.Set("key", c.config.APIKey)
	}

	env, err := c.fetchEnvelope(ctx, "/answers", "/answers/"+joinIDs(ids), params)
	if err != nil {
		return nil, err
	}

	var items []Answer
	if len(env.Items) > 0 {
		if err := json.Unmarshal(env.Items, &items); err != nil {
			seErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}

	return &AnswersPage{
		Items:   items,
		Backoff: env.BackoffDuration(),
	}, nil
}

// fetchEnvelope performs a GET against the API and decodes the common
// envelope. Throttle violations are retried in place after the advertised
// wait; any other failure is returned to the caller. endpoint is the metric
// label (path without embedded ids), path the actual request path.
func (c *Client) fetchEnvelope(ctx context.Context, endpoint, path string, params url.Values) (*Envelope, error) {
	if !c.quota.Allow() {
		return nil, ErrQuotaExhausted
	}

	cacheKey := cache.Key{Endpoint: path, Query: params}
	if c.cache != nil {
		if entry, err := c.cache.Get(ctx, cacheKey); err == nil {
			var env Envelope
			if err := json.Unmarshal(entry.Data, &env); err == nil {
				seCachedResponsesTotal.Inc()
				c.logger.Debug().Str("endpoint", endpoint).Msg("Serving response from cache")
				return &env, nil
			}
			// Corrupt entry: fall through to a live request.
			_ = c.cache.Delete(ctx, cacheKey)
		} else if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	requestURL := c.config.BaseURL + path + "?" + params.Encode()

	throttleRetries := 0
	for {
		body, statusCode, err := c.doRequest(ctx, endpoint, requestURL)
		if err != nil {
			return nil, err
		}

		if statusCode != http.StatusOK {
			var env Envelope
			if err := json.Unmarshal(body, &env); err != nil {
				seErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
				return nil, fmt.Errorf("decode error response (status %d): %w", statusCode, err)
			}

			if env.IsThrottle() {
				wait, ok := parseThrottleWait(env.ErrorMessage)
				if !ok {
					c.logger.Warn().
						Str("endpoint", endpoint).
						Str("error_message", env.ErrorMessage).
						Dur("fallback", c.config.ThrottleFallback).
						Msg("Throttle violation without parseable wait time")
					wait = c.config.ThrottleFallback
				}

				throttleRetries++
				if c.config.MaxThrottleRetries > 0 && throttleRetries > c.config.MaxThrottleRetries {
					seErrorsTotal.WithLabelValues(string(ErrorClassThrottle)).Inc()
					return nil, fmt.Errorf("%w after %d attempts", ErrThrottleRetriesExhausted, throttleRetries)
				}

				seThrottleWaitsTotal.Inc()
				seThrottleWaitSeconds.Observe(wait.Seconds())
				c.logger.Warn().
					Str("endpoint", endpoint).
					Dur("wait", wait).
					Int("attempt", throttleRetries).
					Msg("Throttled, waiting before retry")

				if err := c.sleep(ctx, wait); err != nil {
					return nil, fmt.Errorf("throttle wait interrupted: %w", err)
				}
				continue
			}

			seErrorsTotal.WithLabelValues(string(ErrorClassAPI)).Inc()
			return nil, &APIError{
				StatusCode:   statusCode,
				ErrorID:      env.ErrorID,
				ErrorName:    env.ErrorName,
				ErrorMessage: env.ErrorMessage,
			}
		}

		var env Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			seErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			return nil, fmt.Errorf("decode response: %w", err)
		}

		c.quota.Update(env.QuotaRemaining, env.QuotaMax)

		if c.cache != nil {
			if err := c.cache.Set(ctx, cacheKey, body, c.config.CacheTTL); err != nil {
				c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
			}
		}

		return &env, nil
	}
}

// doRequest executes one HTTP GET and returns the full body and status.
func (c *Client) doRequest(ctx context.Context, endpoint, requestURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	seRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		seErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		seRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, 0, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	seRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		seErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

// joinIDs renders ids as the semicolon-separated path segment the batch
// endpoints expect.
func joinIDs(ids []int64) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetSleepFunc replaces the sleep implementation (for testing).
func (c *Client) SetSleepFunc(fn SleepFunc) {
	if fn != nil {
		c.sleep = fn
	}
}
