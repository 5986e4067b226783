package insights

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/textmatch"
)

// MinSuggestionRunes is the shortest term that produces suggestions.
const MinSuggestionRunes = 2

// MaxSuggestions caps a suggestion list.
const MaxSuggestions = 10

// SkillSummary is the trending projection of a catalog skill.
type SkillSummary struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Category        model.Category `json:"category"`
	Trending        bool           `json:"trending"`
	PopularityScore float64        `json:"popularityScore"`
	TotalUsers      int            `json:"totalUsers"`
	TeachingUsers   int            `json:"teachingUsers"`
	LearningUsers   int            `json:"learningUsers"`
	AverageRating   float64        `json:"averageRating"`
}

// CategorySummary aggregates the active skills of one category.
type CategorySummary struct {
	Category      model.Category `json:"category"`
	Count         int            `json:"count"`
	TotalUsers    int            `json:"totalUsers"`
	TeachingUsers int            `json:"teachingUsers"`
	LearningUsers int            `json:"learningUsers"`
	AverageRating float64        `json:"averageRating"`
	Sample        []string       `json:"sample"`
}

// SuggestionEntry is one autocomplete candidate.
type SuggestionEntry struct {
	Name       string         `json:"name"`
	Category   model.Category `json:"category"`
	TotalUsers int            `json:"totalUsers"`
}

func summarize(s *model.Skill) SkillSummary {
	return SkillSummary{
		ID:              s.ID,
		Name:            s.Name,
		Category:        s.Category,
		Trending:        s.Trending,
		PopularityScore: s.PopularityScore,
		TotalUsers:      s.Stats.TotalUsers,
		TeachingUsers:   s.Stats.TeachingUsers,
		LearningUsers:   s.Stats.LearningUsers,
		AverageRating:   s.Stats.AverageRating,
	}
}

func activeOnly(skills []model.Skill) []*model.Skill {
	out := make([]*model.Skill, 0, len(skills))
	for i := range skills {
		if skills[i].IsActive {
			out = append(out, &skills[i])
		}
	}
	return out
}

// Trending ranks active skills by trending flag, popularity score, total
// users and average rating, and returns at most limit of them.
func Trending(skills []model.Skill, limit int) []SkillSummary {
	active := activeOnly(skills)
	sort.Slice(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.Trending != b.Trending {
			return a.Trending
		}
		if a.PopularityScore != b.PopularityScore {
			return a.PopularityScore > b.PopularityScore
		}
		if a.Stats.TotalUsers != b.Stats.TotalUsers {
			return a.Stats.TotalUsers > b.Stats.TotalUsers
		}
		if a.Stats.AverageRating != b.Stats.AverageRating {
			return a.Stats.AverageRating > b.Stats.AverageRating
		}
		return a.ID < b.ID
	})
	if limit < 0 {
		limit = 0
	}
	if len(active) > limit {
		active = active[:limit]
	}
	out := make([]SkillSummary, len(active))
	for i, s := range active {
		out[i] = summarize(s)
	}
	return out
}

// Categories groups active skills by category. averageRating is the
// user-weighted mean of the skills' ratings rounded to one decimal and is 0
// for a category nobody uses. Sample holds up to sampleSize skill names,
// most used first.
func Categories(skills []model.Skill, sampleSize int) []CategorySummary {
	groups := make(map[model.Category][]*model.Skill)
	for _, s := range activeOnly(skills) {
		groups[s.Category] = append(groups[s.Category], s)
	}

	out := make([]CategorySummary, 0, len(groups))
	for cat, members := range groups {
		sort.Slice(members, func(i, j int) bool {
			if members[i].Stats.TotalUsers != members[j].Stats.TotalUsers {
				return members[i].Stats.TotalUsers > members[j].Stats.TotalUsers
			}
			return members[i].Name < members[j].Name
		})

		sum := CategorySummary{Category: cat, Count: len(members), Sample: []string{}}
		var weighted float64
		for _, s := range members {
			sum.TotalUsers += s.Stats.TotalUsers
			sum.TeachingUsers += s.Stats.TeachingUsers
			sum.LearningUsers += s.Stats.LearningUsers
			weighted += s.Stats.AverageRating * float64(s.Stats.TotalUsers)
			if len(sum.Sample) < sampleSize {
				sum.Sample = append(sum.Sample, s.Name)
			}
		}
		if sum.TotalUsers > 0 {
			sum.AverageRating = math.Round(weighted/float64(sum.TotalUsers)*10) / 10
		}
		out = append(out, sum)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalUsers != out[j].TotalUsers {
			return out[i].TotalUsers > out[j].TotalUsers
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Suggest returns up to MaxSuggestions active skills whose name, tags,
// keywords or category contain term. Terms shorter than
// MinSuggestionRunes yield an empty list.
func Suggest(skills []model.Skill, term string) []SuggestionEntry {
	t := textmatch.NewTerm(term)
	if utf8.RuneCountInString(t.Folded) < MinSuggestionRunes {
		return []SuggestionEntry{}
	}

	var hits []*model.Skill
	for _, s := range activeOnly(skills) {
		if t.In(s.Name) || t.InAny(s.Tags) || t.InAny(s.Keywords) || t.In(string(s.Category)) {
			hits = append(hits, s)
		}
	}
	byUsage(hits)
	if len(hits) > MaxSuggestions {
		hits = hits[:MaxSuggestions]
	}

	out := make([]SuggestionEntry, len(hits))
	for i, s := range hits {
		out[i] = SuggestionEntry{Name: s.Name, Category: s.Category, TotalUsers: s.Stats.TotalUsers}
	}
	return out
}

// Popular returns the names of the limit most used active skills.
func Popular(skills []model.Skill, limit int) []string {
	active := activeOnly(skills)
	byUsage(active)
	if limit < 0 {
		limit = 0
	}
	if len(active) > limit {
		active = active[:limit]
	}
	out := make([]string, len(active))
	for i, s := range active {
		out[i] = s.Name
	}
	return out
}

func byUsage(skills []*model.Skill) {
	sort.Slice(skills, func(i, j int) bool {
		a, b := skills[i], skills[j]
		if a.Stats.TotalUsers != b.Stats.TotalUsers {
			return a.Stats.TotalUsers > b.Stats.TotalUsers
		}
		if a.PopularityScore != b.PopularityScore {
			return a.PopularityScore > b.PopularityScore
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}
