package extract

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qirunlin/nlp2/pkg/stackexchange"
)

// Prometheus metrics for answer resolution.
var (
	seAnswersResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_answers_resolved_total",
		Help: "Total accepted answers resolved",
	})

	seAnswerChunksSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_answer_chunks_skipped_total",
		Help: "Total answer id chunks skipped after a failed request",
	})
)

// Resolver fetches answer bodies for a set of answer ids in batches of up to
// stackexchange.MaxIDsPerRequest ids per request.
type Resolver struct {
	client     *stackexchange.Client
	chunkDelay time.Duration
	logger     zerolog.Logger
	sleep      stackexchange.SleepFunc
}

// NewResolver creates a resolver. chunkDelay <= 0 selects DefaultPageDelay.
func NewResolver(client *stackexchange.Client, chunkDelay time.Duration) *Resolver {
	if chunkDelay <= 0 {
		chunkDelay = DefaultPageDelay
	}
	return &Resolver{
		client:     client,
		chunkDelay: chunkDelay,
		logger:     log.With().Str("component", "resolver").Logger(),
		sleep:      defaultSleep,
	}
}

// Resolve fetches the bodies for ids and returns answer id -> body. A failed
// chunk is skipped rather than failing the run: its ids are simply absent
// from the result. Throttling is retried inside the client and never reaches
// this level. Cancellation and quota exhaustion stop resolution early,
// returning the partial map with the error.
func (r *Resolver) Resolve(ctx context.Context, ids []int64) (map[int64]string, error) {
	answers := make(map[int64]string, len(ids))

	for start := 0; start < len(ids); start += stackexchange.MaxIDsPerRequest {
		end := start + stackexchange.MaxIDsPerRequest
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		page, err := r.client.Answers(ctx, chunk)
		if err != nil {
			// Nothing left to gain from further chunks in these cases.
			if errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, stackexchange.ErrQuotaExhausted) {
				r.logger.Error().
					Err(err).
					Int("answers_resolved", len(answers)).
					Msg("Answer resolution aborted")
				return answers, err
			}

			seAnswerChunksSkippedTotal.Inc()
			r.logger.Warn().
				Err(err).
				Int("chunk_size", len(chunk)).
				Int("answers_resolved", len(answers)).
				Msg("Answer chunk failed, skipping")
			continue
		}

		for _, a := range page.Items {
			answers[a.AnswerID] = a.Body
		}
		seAnswersResolvedTotal.Add(float64(len(page.Items)))

		r.logger.Debug().
			Int("chunk_size", len(chunk)).
			Int("answers_resolved", len(answers)).
			Msg("Answer chunk resolved")

		if end < len(ids) {
			if err := r.pace(ctx, page.Backoff); err != nil {
				return answers, err
			}
		}
	}

	return answers, nil
}

func (r *Resolver) pace(ctx context.Context, backoff time.Duration) error {
	delay := r.chunkDelay
	if backoff > 0 {
		delay = backoff
		seBackoffDelaysTotal.Inc()
		r.logger.Debug().Dur("backoff", backoff).Msg("Honoring server-advised backoff")
	}
	return r.sleep(ctx, delay)
}

// SetSleepFunc replaces the sleep implementation (for testing).
func (r *Resolver) SetSleepFunc(fn stackexchange.SleepFunc) {
	if fn != nil {
		r.sleep = fn
	}
}

// AcceptedAnswerIDs returns the unique accepted-answer ids referenced by
// questions, in first-seen order.
func AcceptedAnswerIDs(questions []stackexchange.Question) []int64 {
	seen := make(map[int64]struct{}, len(questions))
	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		if !q.HasAcceptedAnswer() {
			continue
		}
		if _, ok := seen[q.AcceptedAnswerID]; ok {
			continue
		}
		seen[q.AcceptedAnswerID] = struct{}{}
		ids = append(ids, q.AcceptedAnswerID)
	}
	return ids
}
