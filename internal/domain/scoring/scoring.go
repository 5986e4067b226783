// Package scoring recomputes a catalog skill's aggregate stats and
// popularity score from the members that list it.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/textmatch"
)

// Weight keys accepted by WithWeightsFromConfig.
const (
	WeightUsers    = "users"
	WeightTeaching = "teaching"
	WeightSessions = "sessions"
	WeightReviews  = "reviews"
	WeightRating   = "rating"
)

// Weights are the coefficients of the popularity score.
type Weights struct {
	Users    float64
	Teaching float64
	Sessions float64
	Reviews  float64
	Rating   float64
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{Users: 1, Teaching: 0.5, Sessions: 0.05, Reviews: 0.1, Rating: 5}
}

// Popularity is users*w_u + teaching*w_t + sessions*w_s + reviews*w_r +
// rating*w_a, rounded to two decimals.
func (w Weights) Popularity(s model.SkillStats) float64 {
	score := float64(s.TotalUsers)*w.Users +
		float64(s.TeachingUsers)*w.Teaching +
		float64(s.TotalSessions)*w.Sessions +
		float64(s.TotalReviews)*w.Reviews +
		s.AverageRating*w.Rating
	return math.Round(score*100) / 100
}

// Option applies a configuration option to the InMemoryScorer.
type Option func(*InMemoryScorer)

// WithWeights replaces every weight. Negative weights are ignored.
func WithWeights(w Weights) Option {
	return func(s *InMemoryScorer) {
		set := func(dst *float64, v float64) {
			if v >= 0 {
				*dst = v
			}
		}
		set(&s.weights.Users, w.Users)
		set(&s.weights.Teaching, w.Teaching)
		set(&s.weights.Sessions, w.Sessions)
		set(&s.weights.Reviews, w.Reviews)
		set(&s.weights.Rating, w.Rating)
	}
}

// WithWeightsFromConfig sets weights from a configuration map. Unknown
// keys and negative values are ignored.
func WithWeightsFromConfig(weights map[string]float64) Option {
	return func(s *InMemoryScorer) {
		for key, v := range weights {
			if v < 0 {
				continue
			}
			switch key {
			case WeightUsers:
				s.weights.Users = v
			case WeightTeaching:
				s.weights.Teaching = v
			case WeightSessions:
				s.weights.Sessions = v
			case WeightReviews:
				s.weights.Reviews = v
			case WeightRating:
				s.weights.Rating = v
			}
		}
	}
}

// Input is a skill name and the members to aggregate it over.
type Input struct {
	SkillName string
	Members   []model.Member
}

// Result carries recomputed stats and popularity for one skill.
type Result struct {
	SkillName  string
	Stats      model.SkillStats
	Popularity float64
}

// Scorer recomputes a skill's stats.
type Scorer interface {
	// Score aggregates in, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// InMemoryScorer implements Scorer with the weighted popularity formula.
type InMemoryScorer struct {
	weights Weights
}

// NewInMemoryScorer creates a new scorer with configuration options.
func NewInMemoryScorer(opts ...Option) *InMemoryScorer {
	s := &InMemoryScorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the active weights.
func (s *InMemoryScorer) Weights() Weights { return s.weights }

// Score implements Scorer.
func (s *InMemoryScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	stats := Aggregate(in.SkillName, in.Members)
	return Result{
		SkillName:  in.SkillName,
		Stats:      stats,
		Popularity: s.weights.Popularity(stats),
	}, nil
}

// Aggregate computes the stats of the skill called name over the active
// members holding at least one listing of that name, compared
// case-insensitively. Each member counts once however many listings match.
// averageRating is the mean over those members with a rating, rounded to
// two decimals, and 0 when none has one.
func Aggregate(name string, members []model.Member) model.SkillStats {
	want := textmatch.Fold(name)
	var (
		stats   model.SkillStats
		rated   int
		ratings float64
	)
	for i := range members {
		m := &members[i]
		if !m.IsActive {
			continue
		}
		var listed, teaching, learning bool
		for j := range m.Skills {
			l := &m.Skills[j]
			if textmatch.Fold(l.Name) != want {
				continue
			}
			listed = true
			teaching = teaching || l.IsTeaching
			learning = learning || l.IsLearning
		}
		if !listed {
			continue
		}
		stats.TotalUsers++
		if teaching {
			stats.TeachingUsers++
		}
		if learning {
			stats.LearningUsers++
		}
		stats.TotalSessions += m.Stats.TotalSessions
		stats.TotalReviews += m.Stats.TotalReviews
		if m.Stats.Rating > 0 {
			rated++
			ratings += m.Stats.Rating
		}
	}
	if rated > 0 {
		stats.AverageRating = math.Round(ratings/float64(rated)*100) / 100
	}
	return stats
}
