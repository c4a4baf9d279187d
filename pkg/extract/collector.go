// Package extract implements the two retrieval stages of an extraction run:
// the paginated question collector and the batch answer resolver. Both are
// strictly sequential; pacing between requests follows the server-advised
// backoff when present and a fixed minimum delay otherwise.
package extract

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qirunlin/nlp2/pkg/stackexchange"
)

// Prometheus metrics for the retrieval stages.
var (
	sePagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_pages_fetched_total",
		Help: "Total question listing pages fetched",
	})

	seQuestionsCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_questions_collected_total",
		Help: "Total questions collected",
	})

	seBackoffDelaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "se_backoff_delays_total",
		Help: "Total server-advised backoff delays honored",
	})
)

// DefaultPageDelay is the minimum delay between successive requests when the
// server advises no backoff.
const DefaultPageDelay = 500 * time.Millisecond

// Collector retrieves the complete question listing for a tag by paginating
// backwards in time on creation_date.
type Collector struct {
	client    *stackexchange.Client
	pageDelay time.Duration
	logger    zerolog.Logger
	sleep     stackexchange.SleepFunc
}

// NewCollector creates a collector. pageDelay <= 0 selects DefaultPageDelay.
func NewCollector(client *stackexchange.Client, pageDelay time.Duration) *Collector {
	if pageDelay <= 0 {
		pageDelay = DefaultPageDelay
	}
	return &Collector{
		client:    client,
		pageDelay: pageDelay,
		logger:    log.With().Str("component", "collector").Logger(),
		sleep:     defaultSleep,
	}
}

// Collect fetches every question carrying tag, newest first, until the API
// returns an empty page or the cursor stops making progress. On a request
// failure the questions collected so far are returned alongside the error,
// so partial work is never lost.
func (c *Collector) Collect(ctx context.Context, tag string) ([]stackexchange.Question, error) {
	var all []stackexchange.Question
	var cursor int64 // smallest creation_date seen; 0 = unset

	for pageNum := 1; ; pageNum++ {
		query := stackexchange.QuestionQuery{Tag: tag}
		if cursor > 0 {
			// Exclude the boundary item so no question appears twice.
			query.Max = cursor - 1
		}

		page, err := c.client.Questions(ctx, query)
		if err != nil {
			c.logger.Error().
				Err(err).
				Int("page", pageNum).
				Int("questions_collected", len(all)).
				Msg("Question page fetch failed, stopping collection")
			return all, err
		}
		sePagesFetchedTotal.Inc()

		if len(page.Items) == 0 {
			c.logger.Info().
				Int("pages", pageNum).
				Int("questions_collected", len(all)).
				Msg("Question listing exhausted")
			return all, nil
		}

		all = append(all, page.Items...)
		seQuestionsCollectedTotal.Add(float64(len(page.Items)))

		newCursor := oldestCreation(page.Items)
		if cursor > 0 && newCursor >= cursor {
			// A non-decreasing cursor would refetch the same window forever.
			c.logger.Warn().
				Int64("cursor", cursor).
				Int64("new_cursor", newCursor).
				Int("questions_collected", len(all)).
				Msg("Cursor failed to decrease, stopping collection")
			return all, nil
		}
		cursor = newCursor

		c.logger.Debug().
			Int("page", pageNum).
			Int("page_size", len(page.Items)).
			Int64("cursor", cursor).
			Msg("Question page collected")

		if err := c.pace(ctx, page.Backoff); err != nil {
			return all, err
		}
	}
}

// pace waits between requests: the server-advised backoff if present, the
// fixed page delay otherwise.
func (c *Collector) pace(ctx context.Context, backoff time.Duration) error {
	delay := c.pageDelay
	if backoff > 0 {
		delay = backoff
		seBackoffDelaysTotal.Inc()
		c.logger.Debug().Dur("backoff", backoff).Msg("Honoring server-advised backoff")
	}
	return c.sleep(ctx, delay)
}

// oldestCreation returns the smallest creation_date in a non-empty page.
func oldestCreation(items []stackexchange.Question) int64 {
	oldest := items[0].CreationDate
	for _, q := range items[1:] {
		if q.CreationDate < oldest {
			oldest = q.CreationDate
		}
	}
	return oldest
}

// SetSleepFunc replaces the sleep implementation (for testing).
func (c *Collector) SetSleepFunc(fn stackexchange.SleepFunc) {
	if fn != nil {
		c.sleep = fn
	}
}

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
