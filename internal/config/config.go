// Package config defines service configuration and its loading.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load layers a YAML file and environment variables over the defaults.
//   - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the catalog and member store.
	StoreBackend string `koanf:"store_backend"`
	// SeedFile is an optional YAML fixture loaded into the memory store at start.
	SeedFile string `koanf:"seed_file"`

	MongoURI               string `koanf:"mongo_uri"`
	MongoDatabase          string `koanf:"mongo_database"`
	MongoSkillsCollection  string `koanf:"mongo_skills_collection"`
	MongoMembersCollection string `koanf:"mongo_members_collection"`
	MongoTimeoutMS         int    `koanf:"mongo_timeout_ms"`

	// RedisAddr enables the insight cache when set.
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	// AMQPURL enables the listing event consumer when set.
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`
	AMQPQueue    string `koanf:"amqp_queue"`

	DefaultPageSize    int `koanf:"default_page_size"`
	MaxPageSize        int `koanf:"max_page_size"`
	MaxTrendingLimit   int `koanf:"max_trending_limit"`
	CategorySampleSize int `koanf:"category_sample_size"`
	PopularLimit       int `koanf:"popular_limit"`

	// WorkerCount sets the number of stats refresh workers.
	WorkerCount int `koanf:"worker_count"`
	// EventQueueSize bounds the in-memory listing event queue.
	EventQueueSize int `koanf:"queue_size"`
	// DedupeSize bounds the remembered listing event ids; zero or less is unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// PopularityWeights overrides the popularity score weights by name
	// (users, teaching, sessions, reviews, rating).
	PopularityWeights map[string]float64 `koanf:"popularity_weights"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		StoreBackend:           BackendMemory,
		MongoDatabase:          "skillswap",
		MongoSkillsCollection:  "skills",
		MongoMembersCollection: "members",
		MongoTimeoutMS:         5000,
		CacheTTLSeconds:        300,
		AMQPExchange:           "profile.events",
		AMQPQueue:              "skillswap.listing-events",
		DefaultPageSize:        20,
		MaxPageSize:            100,
		MaxTrendingLimit:       50,
		CategorySampleSize:     5,
		PopularLimit:           10,
		WorkerCount:            runtime.NumCPU(),
		EventQueueSize:         10_000,
		DedupeSize:             50_000,
		PopularityWeights:      map[string]float64{},
	}
}

// MongoTimeout returns the Mongo operation timeout.
func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.MongoTimeoutMS) * time.Millisecond
}

// CacheTTL returns the insight cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreBackend != BackendMemory && c.StoreBackend != BackendMongo:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	case c.StoreBackend == BackendMongo && c.MongoURI == "":
		return fmt.Errorf("%w: mongo_uri is required for the mongo backend", ErrInvalidConfig)
	case c.DefaultPageSize <= 0:
		return fmt.Errorf("%w: default_page_size must be positive", ErrInvalidConfig)
	case c.MaxPageSize <= 0:
		return fmt.Errorf("%w: max_page_size must be positive", ErrInvalidConfig)
	case c.DefaultPageSize > c.MaxPageSize:
		return fmt.Errorf("%w: default_page_size exceeds max_page_size", ErrInvalidConfig)
	}
	for name, w := range c.PopularityWeights {
		if w < 0 {
			return fmt.Errorf("%w: popularity_weights.%s must not be negative", ErrInvalidConfig, name)
		}
	}
	return nil
}
