package extract

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/qirunlin/nlp2/internal/testutil"
	"github.com/qirunlin/nlp2/pkg/stackexchange"
)

// newTestClient creates a client against the mock API with sleeps disabled.
func newTestClient(t *testing.T, mock *testutil.MockAPI) *stackexchange.Client {
	t.Helper()

	client, err := stackexchange.New(stackexchange.Config{
		BaseURL: mock.URL(),
		Site:    "stackoverflow",
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	client.SetSleepFunc(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	})
	return client
}

// sleepRecorder replaces real pacing sleeps and records the requested delays.
func sleepRecorder(sleeps *[]time.Duration) stackexchange.SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
}

// makeQuestions builds n questions with creation dates newest first starting
// at newest.
func makeQuestions(newest int64, n int) []stackexchange.Question {
	items := make([]stackexchange.Question, n)
	for i := range items {
		date := newest - int64(i)
		items[i] = stackexchange.Question{
			QuestionID:   date,
			Title:        "question",
			CreationDate: date,
		}
	}
	return items
}

func TestCollect_PaginatesUntilEmpty(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	// Three full pages; the fourth request finds the listing exhausted.
	mock.Queue("/questions",
		testutil.EnvelopeResponse(makeQuestions(1000, 100), 0),
		testutil.EnvelopeResponse(makeQuestions(900, 100), 0),
		testutil.EnvelopeResponse(makeQuestions(800, 100), 0),
	)

	client := newTestClient(t, mock)
	collector := NewCollector(client, 0)
	var sleeps []time.Duration
	collector.SetSleepFunc(sleepRecorder(&sleeps))

	questions, err := collector.Collect(context.Background(), "nlp")
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	if len(questions) != 300 {
		t.Errorf("len(questions) = %d, want 300", len(questions))
	}
	if mock.RequestCount() != 4 {
		t.Errorf("Request count = %d, want 4 (3 full pages + empty probe)", mock.RequestCount())
	}

	// The cursor walks backwards: each page requests strictly older questions
	// than the oldest one already seen.
	wantMax := []string{"", "900", "800", "700"}
	for i, raw := range mock.Requests() {
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("Failed to parse request URL %q: %v", raw, err)
		}
		if got := u.Query().Get("max"); got != wantMax[i] {
			t.Errorf("Request %d max = %q, want %q", i+1, got, wantMax[i])
		}
	}

	// Paced once after each non-empty page.
	if len(sleeps) != 3 {
		t.Fatalf("Sleep count = %d, want 3", len(sleeps))
	}
	for i, d := range sleeps {
		if d != DefaultPageDelay {
			t.Errorf("Sleep %d = %v, want %v", i+1, d, DefaultPageDelay)
		}
	}
}

func TestCollect_EmptyFirstPage(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	client := newTestClient(t, mock)
	collector := NewCollector(client, 0)

	questions, err := collector.Collect(context.Background(), "nlp")
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("len(questions) = %d, want 0", len(questions))
	}
	if mock.RequestCount() != 1 {
		t.Errorf("Request count = %d, want 1", mock.RequestCount())
	}
}

func TestCollect_PartialResultOnError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.Queue("/questions",
		testutil.EnvelopeResponse(makeQuestions(1000, 100), 0),
		testutil.ErrorResponse(500, "internal_error", "something broke"),
	)

	client := newTestClient(t, mock)
	collector := NewCollector(client, 0)
	var sleeps []time.Duration
	collector.SetSleepFunc(sleepRecorder(&sleeps))

	questions, err := collector.Collect(context.Background(), "nlp")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *stackexchange.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("Expected *stackexchange.APIError, got %v", err)
	}
	if len(questions) != 100 {
		t.Errorf("len(questions) = %d, want 100 (partial result kept)", len(questions))
	}
}

func TestCollect_NonProgressingCursor(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	// Two pages whose oldest creation date never decreases. Without the guard
	// the collector would refetch the same window forever.
	same := []stackexchange.Question{
		{QuestionID: 1, CreationDate: 500},
		{QuestionID: 2, CreationDate: 500},
	}
	mock.Queue("/questions",
		testutil.EnvelopeResponse(same, 0),
		testutil.EnvelopeResponse(same, 0),
	)

	client := newTestClient(t, mock)
	collector := NewCollector(client, 0)
	var sleeps []time.Duration
	collector.SetSleepFunc(sleepRecorder(&sleeps))

	questions, err := collector.Collect(context.Background(), "nlp")
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if len(questions) != 4 {
		t.Errorf("len(questions) = %d, want 4", len(questions))
	}
	if mock.RequestCount() != 2 {
		t.Errorf("Request count = %d, want 2", mock.RequestCount())
	}
}

func TestCollect_HonorsServerBackoff(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.Queue("/questions",
		testutil.EnvelopeResponse(makeQuestions(1000, 2), 10),
	)

	client := newTestClient(t, mock)
	collector := NewCollector(client, 0)
	var sleeps []time.Duration
	collector.SetSleepFunc(sleepRecorder(&sleeps))

	_, err := collector.Collect(context.Background(), "nlp")
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	if len(sleeps) != 1 {
		t.Fatalf("Sleep count = %d, want 1", len(sleeps))
	}
	if sleeps[0] != 10*time.Second {
		t.Errorf("Pacing delay = %v, want 10s (server-advised backoff)", sleeps[0])
	}
}

func TestCollect_CancelledDuringPacing(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.Queue("/questions",
		testutil.EnvelopeResponse(makeQuestions(1000, 2), 0),
	)

	client := newTestClient(t, mock)
	collector := NewCollector(client, 0)
	collector.SetSleepFunc(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	})

	questions, err := collector.Collect(context.Background(), "nlp")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(questions) != 2 {
		t.Errorf("len(questions) = %d, want 2 (partial result kept)", len(questions))
	}
}

func TestOldestCreation(t *testing.T) {
	tests := []struct {
		name     string
		items    []stackexchange.Question
		expected int64
	}{
		{
			name:     "descending order",
			items:    makeQuestions(100, 3),
			expected: 98,
		},
		{
			name: "unordered page",
			items: []stackexchange.Question{
				{CreationDate: 50},
				{CreationDate: 10},
				{CreationDate: 99},
			},
			expected: 10,
		},
		{
			name:     "single item",
			items:    []stackexchange.Question{{CreationDate: 7}},
			expected: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := oldestCreation(tt.items); got != tt.expected {
				t.Errorf("oldestCreation() = %d, want %d", got, tt.expected)
			}
		})
	}
}
