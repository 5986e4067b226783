// Package query turns raw, loosely typed search filters into an immutable
// SearchQuery and derives the store push-down predicates from it.
package query

import (
	"github.com/okian/skillswap/internal/domain/model"
)

// Intent restricts results to teachers, learners or either.
type Intent string

const (
	IntentBoth     Intent = "both"
	IntentTeaching Intent = "teaching"
	IntentLearning Intent = "learning"
)

// SortBy is a ranking intent. Each result channel maps it to its own
// comparator.
type SortBy string

const (
	SortRelevance  SortBy = "relevance"
	SortRating     SortBy = "rating"
	SortPopularity SortBy = "popularity"
	SortRecent     SortBy = "recent"
	SortExperience SortBy = "experience"
)

// LevelSet is a set of proficiency levels. The zero value is empty, which
// accepts every level.
type LevelSet uint8

// NewLevelSet builds a set from levels, ignoring unknown ones.
func NewLevelSet(levels ...model.Level) LevelSet {
	var s LevelSet
	for _, l := range levels {
		if r := l.Rank(); r >= 0 {
			s |= 1 << uint(r)
		}
	}
	return s
}

// Empty reports whether no level was requested.
func (s LevelSet) Empty() bool { return s == 0 }

// Has reports whether l is in the set.
func (s LevelSet) Has(l model.Level) bool {
	r := l.Rank()
	return r >= 0 && s&(1<<uint(r)) != 0
}

// Accepts is Has, except that an empty set accepts everything.
func (s LevelSet) Accepts(l model.Level) bool { return s.Empty() || s.Has(l) }

// AcceptsAny reports whether any of levels is accepted.
func (s LevelSet) AcceptsAny(levels []model.Level) bool {
	if s.Empty() {
		return true
	}
	for _, l := range levels {
		if s.Has(l) {
			return true
		}
	}
	return false
}

// Levels lists the members of the set in ascending order.
func (s LevelSet) Levels() []model.Level {
	var out []model.Level
	for _, l := range model.Levels() {
		if s.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// SearchQuery is the canonical, validated form of a search request. It holds
// no reference types, so every stage receiving a copy sees the same value.
type SearchQuery struct {
	Query     string
	Category  model.Category
	Levels    LevelSet
	Intent    Intent
	Location  string
	MinRating float64
	SortBy    SortBy
	Page      int
	PageSize  int
}

// Offset is the index of the first item on the requested page.
func (q SearchQuery) Offset() int { return (q.Page - 1) * q.PageSize }

// SkillFilter is the catalog push-down predicate. Stores may return a
// superset of its matches but never a subset.
type SkillFilter struct {
	Term      string
	Category  model.Category
	Levels    []model.Level
	Intent    Intent
	MinRating float64
}

// MemberFilter is the member push-down predicate. Term matches the member's
// name or bio or any listing text; Category, Levels and Intent match when at
// least one listing satisfies them.
type MemberFilter struct {
	Term      string
	Location  string
	MinRating float64
	Category  model.Category
	Levels    []model.Level
	Intent    Intent
}

// SkillFilter derives the catalog predicate.
func (q SearchQuery) SkillFilter() SkillFilter {
	return SkillFilter{
		Term:      q.Query,
		Category:  q.Category,
		Levels:    q.Levels.Levels(),
		Intent:    q.Intent,
		MinRating: q.MinRating,
	}
}

// MemberFilter derives the member predicate.
func (q SearchQuery) MemberFilter() MemberFilter {
	return MemberFilter{
		Term:      q.Query,
		Location:  q.Location,
		MinRating: q.MinRating,
		Category:  q.Category,
		Levels:    q.Levels.Levels(),
		Intent:    q.Intent,
	}
}
