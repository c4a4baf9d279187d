package stackexchange

import (
	"encoding/json"
	"time"
)

// Envelope is the common JSON wrapper returned by every Stack Exchange API
// endpoint. Items stays raw here; the typed accessors on Client decode it
// into the concrete item type for the endpoint.
type Envelope struct {
	Items          json.RawMessage `json:"items"`
	HasMore        bool            `json:"has_more"`
	Backoff        int             `json:"backoff"`
	QuotaMax       int             `json:"quota_max"`
	QuotaRemaining int             `json:"quota_remaining"`

	// Populated only on error responses.
	ErrorID      int    `json:"error_id"`
	ErrorName    string `json:"error_name"`
	ErrorMessage string `json:"error_message"`
}

// BackoffDuration returns the server-advised pacing delay, or zero when the
// response carried none.
func (e *Envelope) BackoffDuration() time.Duration {
	if e.Backoff <= 0 {
		return 0
	}
	return time.Duration(e.Backoff) * time.Second
}

// Question is a single question as returned by /questions with filter=withbody.
// AcceptedAnswerID is zero when the question has no accepted answer; the API
// never assigns id 0.
type Question struct {
	QuestionID       int64    `json:"question_id"`
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	Tags             []string `json:"tags"`
	IsAnswered       bool     `json:"is_answered"`
	CreationDate     int64    `json:"creation_date"`
	AcceptedAnswerID int64    `json:"accepted_answer_id"`
}

// HasAcceptedAnswer reports whether the question references an accepted answer.
func (q *Question) HasAcceptedAnswer() bool {
	return q.AcceptedAnswerID > 0
}

// Answer is a single answer as returned by /answers/{ids} with filter=withbody.
type Answer struct {
	AnswerID int64  `json:"answer_id"`
	Body     string `json:"body"`
}

// QuestionQuery selects one page of the question listing.
type QuestionQuery struct {
	// Tag filters questions to those carrying this tag.
	Tag string

	// Max, when positive, restricts results to questions with
	// creation_date <= Max. Callers paginating backwards pass the previous
	// cursor minus one second so the boundary item is not re-included.
	Max int64
}

// QuestionsPage is one page of the question listing.
type QuestionsPage struct {
	Items []Question

	// Backoff is the server-advised delay before the next request, zero if
	// the server gave none.
	Backoff time.Duration

	HasMore bool
}

// AnswersPage is the result of one batch answer lookup.
type AnswersPage struct {
	Items   []Answer
	Backoff time.Duration
}
