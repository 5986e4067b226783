package search

import (
	"sort"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/textmatch"
)

// CatalogMatch is a ranked catalog skill.
type CatalogMatch struct {
	model.Skill
	Relevance int `json:"relevance"`
}

// SearchCatalog filters skills by q and ranks the survivors. It re-applies
// every predicate, so skills may be any superset of the true matches.
func SearchCatalog(skills []model.Skill, q query.SearchQuery) []CatalogMatch {
	term := textmatch.NewTerm(q.Query)
	out := make([]CatalogMatch, 0, len(skills))
	for i := range skills {
		s := &skills[i]
		if !skillMatches(s, q, term) {
			continue
		}
		out = append(out, CatalogMatch{
			Skill:     *s,
			Relevance: term.Score(skillDocument(s)),
		})
	}
	sortCatalog(out, q.SortBy)
	return out
}

func skillDocument(s *model.Skill) textmatch.Document {
	return textmatch.Document{
		Name:        s.Name,
		Description: s.Description,
		Category:    string(s.Category),
		Tags:        s.Tags,
		Keywords:    s.Keywords,
	}
}

func skillMatches(s *model.Skill, q query.SearchQuery, term textmatch.Term) bool {
	if !s.IsActive {
		return false
	}
	if q.Category != "" && s.Category != q.Category {
		return false
	}
	if !q.Levels.AcceptsAny(s.AvailableLevels) {
		return false
	}
	switch q.Intent {
	case query.IntentTeaching:
		if s.Stats.TeachingUsers <= 0 {
			return false
		}
	case query.IntentLearning:
		if s.Stats.LearningUsers <= 0 {
			return false
		}
	}
	if s.Stats.AverageRating < q.MinRating {
		return false
	}
	if term.Empty() {
		return true
	}
	return term.In(s.Name) ||
		term.In(s.Description) ||
		term.InAny(s.Tags) ||
		term.InAny(s.Keywords) ||
		term.In(string(s.Category))
}

// sortCatalog orders matches for sortBy. Every mode ends with id asc so the
// order is total.
func sortCatalog(ms []CatalogMatch, sortBy query.SortBy) {
	sort.Slice(ms, func(i, j int) bool {
		a, b := &ms[i], &ms[j]
		switch sortBy {
		case query.SortRating:
			if a.Stats.AverageRating != b.Stats.AverageRating {
				return a.Stats.AverageRating > b.Stats.AverageRating
			}
			if a.Stats.TotalUsers != b.Stats.TotalUsers {
				return a.Stats.TotalUsers > b.Stats.TotalUsers
			}
		case query.SortPopularity:
			if a.Stats.TotalUsers != b.Stats.TotalUsers {
				return a.Stats.TotalUsers > b.Stats.TotalUsers
			}
			if a.Stats.AverageRating != b.Stats.AverageRating {
				return a.Stats.AverageRating > b.Stats.AverageRating
			}
		case query.SortRecent:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case query.SortExperience:
			if a.Stats.TotalSessions != b.Stats.TotalSessions {
				return a.Stats.TotalSessions > b.Stats.TotalSessions
			}
			if a.Stats.AverageRating != b.Stats.AverageRating {
				return a.Stats.AverageRating > b.Stats.AverageRating
			}
		default:
			if a.Relevance != b.Relevance {
				return a.Relevance > b.Relevance
			}
			if a.PopularityScore != b.PopularityScore {
				return a.PopularityScore > b.PopularityScore
			}
		}
		return a.ID < b.ID
	})
}
