package search_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/search"
	"github.com/okian/skillswap/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func skill(id, name string, cat model.Category, mut ...func(*model.Skill)) model.Skill {
	s := model.Skill{
		ID:              id,
		Name:            name,
		Category:        cat,
		AvailableLevels: model.Levels(),
		IsActive:        true,
		Stats:           model.SkillStats{TotalUsers: 1, TeachingUsers: 1, LearningUsers: 1, AverageRating: 4},
		CreatedAt:       base,
	}
	for _, m := range mut {
		m(&s)
	}
	return s
}

func catalogFixture() []model.Skill {
	return []model.Skill{
		skill("s-js", "JavaScript", model.CategoryProgramming, func(s *model.Skill) {
			s.Tags = []string{"web", "frontend"}
			s.Stats = model.SkillStats{TotalUsers: 50, TeachingUsers: 20, LearningUsers: 30, AverageRating: 4.5, TotalSessions: 300}
			s.PopularityScore = 80
			s.CreatedAt = base.Add(48 * time.Hour)
		}),
		skill("s-java", "Java", model.CategoryProgramming, func(s *model.Skill) {
			s.Tags = []string{"backend", "jvm"}
			s.Stats = model.SkillStats{TotalUsers: 30, TeachingUsers: 10, LearningUsers: 0, AverageRating: 4.8, TotalSessions: 500}
			s.PopularityScore = 60
			s.AvailableLevels = []model.Level{model.LevelAdvanced, model.LevelExpert}
			s.CreatedAt = base.Add(24 * time.Hour)
		}),
		skill("s-py", "Python", model.CategoryProgramming, func(s *model.Skill) {
			s.Tags = []string{"data", "scripting"}
			s.Keywords = []string{"pandas"}
			s.Stats = model.SkillStats{TotalUsers: 70, TeachingUsers: 0, LearningUsers: 40, AverageRating: 3.9, TotalSessions: 100}
			s.PopularityScore = 90
			s.CreatedAt = base.Add(72 * time.Hour)
		}),
		skill("s-guitar", "Guitar", model.CategoryMusic, func(s *model.Skill) {
			s.Description = "Acoustic and electric guitar"
			s.Stats = model.SkillStats{TotalUsers: 20, TeachingUsers: 5, LearningUsers: 15, AverageRating: 4.2}
			s.AvailableLevels = []model.Level{model.LevelBeginner}
		}),
		skill("s-cobol", "COBOL", model.CategoryProgramming, func(s *model.Skill) {
			s.IsActive = false
		}),
	}
}

func member(id, name string, rating float64, sessions int, listings ...model.SkillListing) model.Member {
	return model.Member{
		ID:        id,
		Name:      name,
		IsActive:  true,
		Location:  model.Location{City: "Berlin", Country: "Germany"},
		Stats:     model.MemberStats{Rating: rating, TotalSessions: sessions},
		Skills:    listings,
		CreatedAt: base,
	}
}

func listing(id, name string, level model.Level, teaching, learning bool) model.SkillListing {
	return model.SkillListing{
		ID:         id,
		Name:       name,
		Category:   model.CategoryProgramming,
		Level:      level,
		IsTeaching: teaching,
		IsLearning: learning,
	}
}

type fakeCatalog struct {
	skills []model.Skill
	err    error
	calls  atomic.Int32
}

func (f *fakeCatalog) FindActiveSkills(ctx context.Context, _ query.SkillFilter) ([]model.Skill, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Skill, len(f.skills))
	copy(out, f.skills)
	return out, nil
}

type fakeMembers struct {
	members []model.Member
	err     error
	calls   atomic.Int32
}

func (f *fakeMembers) FindActiveMembers(ctx context.Context, _ query.MemberFilter) ([]model.Member, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Member, len(f.members))
	copy(out, f.members)
	return out, nil
}

func mustQuery(raw query.RawFilter) query.SearchQuery {
	q, err := query.Normalize(raw)
	if err != nil {
		panic(err)
	}
	return q
}

func catalogIDs(ms []search.CatalogMatch) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func listingIDs(rows []search.ListingMatch) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
