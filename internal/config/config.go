// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/placerank/internal/domain/model"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory ingestion queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event ID deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RecommendationSize is the default length of a recommendation list.
	RecommendationSize int `koanf:"recommendation_size"`

	// SimilarSize is the default length of a similar-places list.
	SimilarSize int `koanf:"similar_size"`

	// MaxRankingLimit caps GET /ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// RankingCacheTTLMS bounds how long a computed IL ranking is reused.
	RankingCacheTTLMS int `koanf:"ranking_cache_ttl_ms"`

	// SeedFile optionally points at a YAML roster loaded at start-up.
	SeedFile string `koanf:"seed_file"`

	// Store selects the repository backend: memory or redis.
	Store string `koanf:"store"`

	// RedisAddr and RedisPrefix configure the redis backend.
	RedisAddr   string `koanf:"redis_addr"`
	RedisPrefix string `koanf:"redis_prefix"`

	// EventWeights overrides tag-profile weights per event type.
	EventWeights map[string]int `koanf:"event_weights"`
}

// New creates a Config populated with defaults.
func New() *Config {
	weights := map[string]int{}
	for t, w := range model.DefaultWeights() {
		weights[string(t)] = w
	}
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		EventQueueSize:     10_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         100_000,
		RecommendationSize: 3,
		SimilarSize:        5,
		MaxRankingLimit:    100,
		RankingCacheTTLMS:  30_000,
		Store:              StoreMemory,
		RedisAddr:          "localhost:6379",
		RedisPrefix:        "placerank",
		EventWeights:       weights,
	}
}

// Validate reports the first invalid field wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.RecommendationSize <= 0 || c.SimilarSize <= 0 || c.MaxRankingLimit <= 0:
		return fmt.Errorf("%w: list sizes must be positive", ErrInvalidConfig)
	case c.RankingCacheTTLMS < 0:
		return fmt.Errorf("%w: ranking_cache_ttl_ms must not be negative", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StoreRedis:
		return fmt.Errorf("%w: store %q", ErrInvalidConfig, c.Store)
	case c.Store == StoreRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr required for redis store", ErrInvalidConfig)
	}
	if _, err := c.Weights(); err != nil {
		return err
	}
	return nil
}

// Weights converts EventWeights into model weights, filling unset types with defaults.
func (c *Config) Weights() (model.Weights, error) {
	w := model.DefaultWeights()
	for name, v := range c.EventWeights {
		t, err := model.ParseEventType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: event_weights: %w", ErrInvalidConfig, err)
		}
		w[t] = v
	}
	return w, nil
}

// RankingCacheTTL returns RankingCacheTTLMS as a duration.
func (c *Config) RankingCacheTTL() time.Duration {
	return time.Duration(c.RankingCacheTTLMS) * time.Millisecond
}
