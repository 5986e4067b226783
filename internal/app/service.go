// Package service wires the stores, the search engine, the insight jobs and
// the stats refresh pipeline behind the operations the transports call.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/skillswap/internal/adapters/mq/queue"
	workerpool "github.com/okian/skillswap/internal/adapters/mq/worker"
	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/dedupe"
	"github.com/okian/skillswap/internal/domain/insights"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/scoring"
	"github.com/okian/skillswap/internal/domain/search"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

const defaultStopTimeout = 10 * time.Second

// Service implements the API dependencies for skill discovery.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	engine   *search.Engine
	insights *insights.Service
	scorer   *scoring.InMemoryScorer

	// Refresh pipeline, built on Start.
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int

	normalizerOpts []query.Option
	insightOpts    []insights.Option
	weights        map[string]float64

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of stats refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the listing event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the remembered event ids. Zero or less is unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithPageSizes sets the default and maximum search page sizes.
func WithPageSizes(def, maxSize int) Option {
	return func(s *Service) {
		s.normalizerOpts = append(s.normalizerOpts, query.WithDefaultPageSize(def), query.WithMaxPageSize(maxSize))
	}
}

// WithInsightOptions passes options through to the insight jobs.
func WithInsightOptions(opts ...insights.Option) Option {
	return func(s *Service) {
		s.insightOpts = append(s.insightOpts, opts...)
	}
}

// WithPopularityWeights overrides popularity weights by name.
func WithPopularityWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.weights = weights
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store. Searches and insights work right
// away; listing events need Start.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  dedupe.DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.engine = search.NewEngine(store, store,
		search.WithNormalizer(query.NewNormalizer(s.normalizerOpts...)),
	)
	s.insights = insights.NewService(store, s.insightOpts...)
	s.scorer = scoring.NewInMemoryScorer(scoring.WithWeightsFromConfig(s.weights))
	return s
}

// Start builds and starts the refresh pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store, s.scorer, s.store)
	s.workerPool.Start(context.WithoutCancel(ctx))

	if skills, members, err := s.store.Counts(ctx); err == nil {
		metrics.UpdateCatalogSize(skills)
		metrics.UpdateMemberCount(members)
	}

	s.started = true
	s.logger.Info(ctx, "skillswap service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes intake and waits for queued events to drain, up to ctx or
// ten seconds when ctx has no deadline.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultStopTimeout)
		defer cancel()
	}

	s.logger.Info(ctx, "stopping skillswap service", logger.Int("queued", s.eventQueue.Len(ctx)))
	err := s.workerPool.Shutdown(ctx)
	s.started = false
	if err != nil {
		return fmt.Errorf("stop refresh workers: %w", err)
	}
	s.logger.Info(ctx, "skillswap service stopped", logger.Int64("processed", s.workerPool.Processed()))
	return nil
}

// Search runs a raw filter through the engine.
func (s *Service) Search(ctx context.Context, raw query.RawFilter) (search.Result, error) {
	return s.engine.Search(ctx, raw)
}

// GetTrending returns the top trending catalog skills.
func (s *Service) GetTrending(ctx context.Context, limit int) ([]insights.SkillSummary, error) {
	return s.insights.GetTrending(ctx, limit)
}

// GetCategorySummary returns per-category aggregates.
func (s *Service) GetCategorySummary(ctx context.Context) ([]insights.CategorySummary, error) {
	return s.insights.GetCategorySummary(ctx)
}

// GetSuggestions returns catalog names for autocomplete.
func (s *Service) GetSuggestions(ctx context.Context, term string) ([]insights.SuggestionEntry, error) {
	return s.insights.GetSuggestions(ctx, term)
}

// GetPopularSearches returns the most used catalog names.
func (s *Service) GetPopularSearches(ctx context.Context) ([]string, error) {
	return s.insights.GetPopularSearches(ctx)
}

// SubmitListingEvent queues a listing event for a stats refresh. It
// reports false without error for a redelivered event id. A missing id is
// generated and a missing timestamp is set to now.
func (s *Service) SubmitListingEvent(ctx context.Context, e model.ListingEvent) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false, ErrNotStarted
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}
	if err := e.Validate(); err != nil {
		return false, err
	}

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordListingEventDuplicate()
		s.logger.Debug(ctx, "duplicate listing event", logger.String("eventID", e.EventID))
		return false, nil
	}
	if !s.eventQueue.Enqueue(ctx, e) {
		s.deduper.Unrecord(ctx, e.EventID)
		return false, fmt.Errorf("%w: event %s", ErrQueueFull, e.EventID)
	}
	metrics.RecordListingEventProcessed()
	return true, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"weights":     s.scorer.Weights(),
	}

	if skills, members, err := s.store.Counts(ctx); err == nil {
		stats["skills"] = skills
		stats["members"] = members
		metrics.UpdateCatalogSize(skills)
		metrics.UpdateMemberCount(members)
	} else {
		stats["storeError"] = err.Error()
	}

	if s.started {
		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		stats["processed"] = s.workerPool.Processed()
	}
	return stats
}
