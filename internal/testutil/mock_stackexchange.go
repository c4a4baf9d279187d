// Package testutil provides testing utilities for the extractor, primarily
// a scripted mock of the Stack Exchange API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Response is one scripted mock API response.
type Response struct {
	StatusCode int
	Body       string
}

// MockAPI is a configurable mock Stack Exchange API server. Responses are
// scripted per path prefix and consumed in order; once a script runs dry the
// server answers with an empty-items envelope, which terminates pagination.
type MockAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	scripts  map[string][]Response
	requests []string
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		scripts: make(map[string][]Response),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, r.URL.String())

		var resp Response
		found := false
		for prefix, queue := range mock.scripts {
			if strings.HasPrefix(r.URL.Path, prefix) && len(queue) > 0 {
				resp = queue[0]
				mock.scripts[prefix] = queue[1:]
				found = true
				break
			}
		}
		mock.mu.Unlock()

		if !found {
			resp = EmptyPageResponse()
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		fmt.Fprint(w, resp.Body)
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Queue appends scripted responses for requests whose path starts with prefix.
func (m *MockAPI) Queue(prefix string, responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[prefix] = append(m.scripts[prefix], responses...)
}

// Requests returns all request URLs (path + query) seen so far, in order.
func (m *MockAPI) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests seen so far.
func (m *MockAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// RequestCountFor returns the number of requests whose path starts with prefix.
func (m *MockAPI) RequestCountFor(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.requests {
		if strings.HasPrefix(u, prefix) {
			n++
		}
	}
	return n
}

// EnvelopeResponse builds a 200 response wrapping items in the standard
// envelope. backoff 0 omits the backoff field.
func EnvelopeResponse(items any, backoff int) Response {
	env := map[string]any{
		"items":           items,
		"has_more":        true,
		"quota_max":       300,
		"quota_remaining": 280,
	}
	if backoff > 0 {
		env["backoff"] = backoff
	}
	body, err := json.Marshal(env)
	if err != nil {
		panic(fmt.Sprintf("marshal mock envelope: %v", err))
	}
	return Response{StatusCode: http.StatusOK, Body: string(body)}
}

// EmptyPageResponse builds a 200 response with no items.
func EmptyPageResponse() Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       `{"items":[],"has_more":false,"quota_max":300,"quota_remaining":280}`,
	}
}

// ThrottleResponse builds a throttle violation advertising a wait in seconds.
func ThrottleResponse(seconds int) Response {
	return Response{
		StatusCode: http.StatusBadRequest,
		Body: fmt.Sprintf(`{"error_id":502,"error_name":"throttle_violation",`+
			`"error_message":"too many requests from this IP, more requests will be available in %d seconds"}`, seconds),
	}
}

// ThrottleResponseNoHint builds a throttle violation without a parseable wait.
func ThrottleResponseNoHint() Response {
	return Response{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error_id":502,"error_name":"throttle_violation","error_message":"slow down"}`,
	}
}

// ErrorResponse builds a non-throttle API error envelope.
func ErrorResponse(status int, name, message string) Response {
	body, _ := json.Marshal(map[string]any{
		"error_id":      status,
		"error_name":    name,
		"error_message": message,
	})
	return Response{StatusCode: status, Body: string(body)}
}

// QuotaResponse builds a 200 empty-items response with explicit quota values.
func QuotaResponse(remaining, max int) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body: fmt.Sprintf(`{"items":[],"has_more":false,"quota_max":%d,"quota_remaining":%d}`,
			max, remaining),
	}
}
