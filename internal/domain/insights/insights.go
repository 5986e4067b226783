// Package insights serves the read-side aggregates over the skill catalog:
// trending skills, per-category summaries, autocomplete suggestions and
// popular searches.
package insights

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/search"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

// Defaults for the aggregate sizes.
const (
	DefaultTrendingLimit    = 10
	DefaultMaxTrendingLimit = 50
	DefaultSampleSize       = 5
	DefaultPopularLimit     = 10
)

// Insight kinds, used as cache keys and metric labels.
const (
	KindTrending    = "trending"
	KindCategories  = "categories"
	KindSuggestions = "suggestions"
	KindPopular     = "popular"
)

// Cache stores computed aggregates. A miss is (false, nil).
type Cache interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Store(ctx context.Context, key string, v any) error
}

// Service computes aggregates from the active catalog.
type Service struct {
	catalog          search.CatalogReader
	cache            Cache
	maxTrendingLimit int
	sampleSize       int
	popularLimit     int
	logger           logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCache enables caching of trending, category and popular results.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithMaxTrendingLimit caps the trending limit a caller may request.
func WithMaxTrendingLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTrendingLimit = n
		}
	}
}

// WithSampleSize sets how many skill names each category summary carries.
func WithSampleSize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.sampleSize = n
		}
	}
}

// WithPopularLimit sets the length of the popular searches list.
func WithPopularLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.popularLimit = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates an insights Service over catalog.
func NewService(catalog search.CatalogReader, opts ...Option) *Service {
	s := &Service{
		catalog:          catalog,
		maxTrendingLimit: DefaultMaxTrendingLimit,
		sampleSize:       DefaultSampleSize,
		popularLimit:     DefaultPopularLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("insights")
	}
	return s
}

// TrendingLimit clamps a requested limit to [1, max]; zero or less selects
// the default.
func (s *Service) TrendingLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if limit > s.maxTrendingLimit {
		limit = s.maxTrendingLimit
	}
	return limit
}

// GetTrending returns up to limit trending skills.
func (s *Service) GetTrending(ctx context.Context, limit int) ([]SkillSummary, error) {
	limit = s.TrendingLimit(limit)
	return cached(ctx, s, KindTrending+":"+strconv.Itoa(limit), func(ctx context.Context) ([]SkillSummary, error) {
		skills, err := s.activeSkills(ctx)
		if err != nil {
			return nil, err
		}
		return Trending(skills, limit), nil
	})
}

// GetCategorySummary returns one summary per category with active skills.
func (s *Service) GetCategorySummary(ctx context.Context) ([]CategorySummary, error) {
	return cached(ctx, s, KindCategories, func(ctx context.Context) ([]CategorySummary, error) {
		skills, err := s.activeSkills(ctx)
		if err != nil {
			return nil, err
		}
		return Categories(skills, s.sampleSize), nil
	})
}

// GetSuggestions returns autocomplete entries for term. Suggestions follow
// keystrokes and are never cached.
func (s *Service) GetSuggestions(ctx context.Context, term string) ([]SuggestionEntry, error) {
	metrics.RecordInsightRequest(KindSuggestions)
	if utf8.RuneCountInString(strings.TrimSpace(term)) < MinSuggestionRunes {
		return []SuggestionEntry{}, nil
	}
	skills, err := s.activeSkills(ctx)
	if err != nil {
		return nil, err
	}
	return Suggest(skills, term), nil
}

// GetPopularSearches returns the most used skill names.
func (s *Service) GetPopularSearches(ctx context.Context) ([]string, error) {
	return cached(ctx, s, KindPopular, func(ctx context.Context) ([]string, error) {
		skills, err := s.activeSkills(ctx)
		if err != nil {
			return nil, err
		}
		return Popular(skills, s.popularLimit), nil
	})
}

func (s *Service) activeSkills(ctx context.Context) ([]model.Skill, error) {
	skills, err := s.catalog.FindActiveSkills(ctx, query.SkillFilter{})
	if err != nil {
		metrics.RecordStoreError(search.StageCatalog)
		return nil, &search.StoreError{Stage: search.StageCatalog, Err: err}
	}
	return skills, nil
}

// cached serves key from the cache when one is configured. Cache failures
// are logged and the value is computed fresh.
func cached[T any](ctx context.Context, s *Service, key string, compute func(context.Context) (T, error)) (T, error) {
	kind := key
	if i := strings.IndexByte(key, ':'); i >= 0 {
		kind = key[:i]
	}
	metrics.RecordInsightRequest(kind)

	if s.cache != nil {
		var hit T
		ok, err := s.cache.Load(ctx, key, &hit)
		switch {
		case err != nil:
			s.logger.Warn(ctx, "insight cache read failed", logger.String("key", key), logger.Error(err))
		case ok:
			metrics.RecordCacheHit(kind)
			return hit, nil
		default:
			metrics.RecordCacheMiss(kind)
		}
	}

	start := time.Now()
	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	s.logger.Debug(ctx, "insight computed", logger.String("key", key), logger.Duration("took", time.Since(start)))

	if s.cache != nil {
		if err := s.cache.Store(ctx, key, v); err != nil {
			s.logger.Warn(ctx, "insight cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return v, nil
}
