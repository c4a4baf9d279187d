// Command soextract retrieves all questions carrying a tag from a Stack
// Exchange site, resolves their accepted answer bodies, and writes the
// joined records to a CSV file.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/qirunlin/nlp2/pkg/cache"
	"github.com/qirunlin/nlp2/pkg/config"
	"github.com/qirunlin/nlp2/pkg/export"
	"github.com/qirunlin/nlp2/pkg/extract"
	"github.com/qirunlin/nlp2/pkg/logging"
	"github.com/qirunlin/nlp2/pkg/stackexchange"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	tag := flag.String("tag", "", "Override the configured tag")
	out := flag.String("out", "", "Override the configured output path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	if *tag != "" {
		cfg.Tag = *tag
	}
	if *out != "" {
		cfg.Output = *out
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx := context.Background()

	// The response cache is an optimization: if Redis is unreachable the
	// run proceeds uncached.
	var cacheManager *cache.Manager
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("redis_url", cfg.RedisURL).
				Msg("Redis unreachable, running without response cache")
			redisClient.Close()
		} else {
			cacheManager = cache.NewManager(redisClient)
			defer redisClient.Close()
			logger.Info().Str("redis_url", cfg.RedisURL).Msg("Response cache enabled")
		}
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn().Err(err).Msg("Metrics listener stopped")
			}
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving Prometheus metrics")
	}

	client, err := stackexchange.New(stackexchange.Config{
		BaseURL:            cfg.BaseURL,
		Site:               cfg.Site,
		APIKey:             cfg.APIKey,
		PageSize:           cfg.PageSize,
		UserAgent:          cfg.UserAgent,
		ThrottleFallback:   cfg.ThrottleFallback,
		MaxThrottleRetries: cfg.MaxThrottleRetries,
		Cache:              cacheManager,
		CacheTTL:           cfg.CacheTTL,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create API client")
		return 2
	}

	logger.Info().
		Str("site", cfg.Site).
		Str("tag", cfg.Tag).
		Str("output", cfg.Output).
		Bool("authenticated", cfg.APIKey != "").
		Msg("Starting extraction")

	collector := extract.NewCollector(client, cfg.PageDelay)
	questions, err := collector.Collect(ctx, cfg.Tag)
	if err != nil {
		// Partial results are still worth writing out.
		logger.Error().Err(err).
			Int("questions_collected", len(questions)).
			Msg("Collection aborted, continuing with partial result")
	}
	if len(questions) == 0 {
		logger.Error().Msg("No questions retrieved")
		return 1
	}
	logger.Info().Int("questions", len(questions)).Msg("Collection finished")

	ids := extract.AcceptedAnswerIDs(questions)
	resolver := extract.NewResolver(client, cfg.PageDelay)
	answers, err := resolver.Resolve(ctx, ids)
	if err != nil {
		logger.Error().Err(err).
			Int("answers_resolved", len(answers)).
			Msg("Resolution aborted, continuing with partial result")
	}
	logger.Info().
		Int("accepted_answer_ids", len(ids)).
		Int("answers_resolved", len(answers)).
		Msg("Answer resolution finished")

	if err := export.WriteFile(cfg.Output, questions, answers); err != nil {
		logger.Error().Err(err).
			Int("questions", len(questions)).
			Int("answers", len(answers)).
			Msg("Failed to write output")
		return 1
	}

	logger.Info().
		Str("output", cfg.Output).
		Int("rows", len(questions)).
		Msg("Extraction complete")
	return 0
}
