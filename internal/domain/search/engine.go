// Package search runs a normalized query against the catalog and member
// stores and returns two independently ranked and paginated channels.
package search

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

// CatalogReader reads active catalog skills. Implementations may return a
// superset of the filter's matches.
type CatalogReader interface {
	FindActiveSkills(ctx context.Context, f query.SkillFilter) ([]model.Skill, error)
}

// MemberReader reads active members with their full listing collections.
// Implementations may return a superset of the filter's matches.
type MemberReader interface {
	FindActiveMembers(ctx context.Context, f query.MemberFilter) ([]model.Member, error)
}

// Result carries both channels. They are never merged into one ranking.
type Result struct {
	Query    query.SearchQuery  `json:"-"`
	Skills   Page[CatalogMatch] `json:"skills"`
	Listings Page[ListingMatch] `json:"listings"`
}

// Engine is stateless apart from its collaborators; concurrent searches
// never block one another.
type Engine struct {
	catalog    CatalogReader
	members    MemberReader
	normalizer *query.Normalizer
	logger     logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithNormalizer sets the filter normalizer.
func WithNormalizer(n *query.Normalizer) Option {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine over the given stores.
func NewEngine(catalog CatalogReader, members MemberReader, opts ...Option) *Engine {
	e := &Engine{
		catalog:    catalog,
		members:    members,
		normalizer: query.NewNormalizer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("search")
	}
	return e
}

// Search normalizes raw and runs it. It returns a *query.ValidationError for
// malformed filters and a *StoreError when either store read fails.
func (e *Engine) Search(ctx context.Context, raw query.RawFilter) (Result, error) {
	q, err := e.normalizer.Normalize(raw)
	if err != nil {
		var ve *query.ValidationError
		if errors.As(err, &ve) {
			metrics.RecordValidationError(ve.Field)
		}
		e.logger.Debug(ctx, "rejected search filter", logger.Error(err))
		return Result{}, err
	}
	return e.Run(ctx, q)
}

// Run executes an already normalized query. Both stages read their store
// once, concurrently; a failure in either fails the whole search.
func (e *Engine) Run(ctx context.Context, q query.SearchQuery) (Result, error) {
	start := time.Now()
	metrics.RecordSearchRequest(string(q.SortBy))

	if err := ctx.Err(); err != nil {
		return Result{}, &StoreError{Stage: StageCatalog, Err: err}
	}

	var (
		skills   []CatalogMatch
		listings []ListingMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stageStart := time.Now()
		found, err := e.catalog.FindActiveSkills(gctx, q.SkillFilter())
		if err != nil {
			return &StoreError{Stage: StageCatalog, Err: err}
		}
		skills = SearchCatalog(found, q)
		metrics.RecordSearchLatency(StageCatalog, msSince(stageStart))
		return nil
	})
	g.Go(func() error {
		stageStart := time.Now()
		found, err := e.members.FindActiveMembers(gctx, q.MemberFilter())
		if err != nil {
			return &StoreError{Stage: StageMembers, Err: err}
		}
		listings = SearchMembers(found, q)
		metrics.RecordSearchLatency(StageMembers, msSince(stageStart))
		return nil
	})
	if err := g.Wait(); err != nil {
		var se *StoreError
		if errors.As(err, &se) {
			metrics.RecordStoreError(se.Stage)
		}
		e.logger.Error(ctx, "search failed",
			logger.String("query", q.Query),
			logger.Error(err),
		)
		return Result{}, err
	}

	metrics.RecordSearchResults("skills", len(skills))
	metrics.RecordSearchResults("listings", len(listings))
	metrics.RecordSearchLatency("total", msSince(start))

	res := Result{
		Query:    q,
		Skills:   Paginate(skills, q.Page, q.PageSize),
		Listings: Paginate(listings, q.Page, q.PageSize),
	}
	e.logger.Debug(ctx, "search served",
		logger.String("query", q.Query),
		logger.String("sort", string(q.SortBy)),
		logger.Int("skills", res.Skills.TotalCount),
		logger.Int("listings", res.Listings.TotalCount),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
