// Package config loads extraction run configuration. Precedence, lowest to
// highest: built-in defaults, an optional YAML file, environment variables.
// A .env file in the working directory is loaded first (best effort) so
// local runs can keep the API key out of the shell history.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for one extraction run.
type Config struct {
	// APIKey raises the request quota; empty runs unauthenticated.
	APIKey string `yaml:"api_key"`

	// Site is the Stack Exchange site to query.
	Site string `yaml:"site"`

	// Tag filters questions.
	Tag string `yaml:"tag"`

	// PageSize for listing pages and answer batches (1..100).
	PageSize int `yaml:"page_size"`

	// BaseURL of the API.
	BaseURL string `yaml:"base_url"`

	// Output is the CSV file path.
	Output string `yaml:"output"`

	// PageDelay is the minimum delay between requests absent a
	// server-advised backoff.
	PageDelay time.Duration `yaml:"page_delay"`

	// ThrottleFallback is the wait used when a throttle violation carries
	// no parseable wait time.
	ThrottleFallback time.Duration `yaml:"throttle_fallback"`

	// MaxThrottleRetries caps throttle retries per request; 0 = unbounded.
	MaxThrottleRetries int `yaml:"max_throttle_retries"`

	// RedisURL enables the response cache when non-empty, e.g. "localhost:6379".
	RedisURL string `yaml:"redis_url"`

	// CacheTTL is the response cache entry lifetime.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// MetricsAddr serves Prometheus metrics when non-empty, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogPretty enables human-readable console output instead of JSON.
	LogPretty bool `yaml:"log_pretty"`

	// UserAgent sent with every API request.
	UserAgent string `yaml:"user_agent"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Site:             "stackoverflow",
		Tag:              "nlp",
		PageSize:         100,
		BaseURL:          "https://api.stackexchange.com/2.3",
		Output:           "nlp_questions_with_accepted_answers.csv",
		PageDelay:        500 * time.Millisecond,
		ThrottleFallback: 60 * time.Second,
		CacheTTL:         15 * time.Minute,
		LogLevel:         "info",
		UserAgent:        "nlp2-soextract/1.0",
	}
}

// Load builds the effective configuration. path may be empty (no YAML file).
func Load(path string) (Config, error) {
	// Best effort: a missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv() {
	c.APIKey = envString("SO_API_KEY", c.APIKey)
	c.Site = envString("SO_SITE", c.Site)
	c.Tag = envString("SO_TAG", c.Tag)
	c.PageSize = envInt("SO_PAGE_SIZE", c.PageSize)
	c.BaseURL = envString("SO_BASE_URL", c.BaseURL)
	c.Output = envString("SO_OUTPUT", c.Output)
	c.PageDelay = envDuration("SO_PAGE_DELAY", c.PageDelay)
	c.ThrottleFallback = envDuration("SO_THROTTLE_FALLBACK", c.ThrottleFallback)
	c.MaxThrottleRetries = envInt("SO_MAX_THROTTLE_RETRIES", c.MaxThrottleRetries)
	c.RedisURL = envString("REDIS_URL", c.RedisURL)
	c.CacheTTL = envDuration("SO_CACHE_TTL", c.CacheTTL)
	c.MetricsAddr = envString("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
	c.LogPretty = envBool("LOG_PRETTY", c.LogPretty)
	c.UserAgent = envString("USER_AGENT", c.UserAgent)
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("site is required")
	}
	if c.Tag == "" {
		return fmt.Errorf("tag is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page_size must be in 1..100 (got %d)", c.PageSize)
	}
	if c.MaxThrottleRetries < 0 {
		return fmt.Errorf("max_throttle_retries must be >= 0 (got %d)", c.MaxThrottleRetries)
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
