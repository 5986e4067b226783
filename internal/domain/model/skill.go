// Package model contains domain models passed between layers.
package model

import "time"

// SkillStats are aggregates over every listing that names a skill.
// They are refreshed asynchronously and may lag the member store.
type SkillStats struct {
	TotalUsers    int     `bson:"total_users" json:"totalUsers" yaml:"totalUsers"`
	TeachingUsers int     `bson:"teaching_users" json:"teachingUsers" yaml:"teachingUsers"`
	LearningUsers int     `bson:"learning_users" json:"learningUsers" yaml:"learningUsers"`
	AverageRating float64 `bson:"average_rating" json:"averageRating" yaml:"averageRating"`
	TotalSessions int     `bson:"total_sessions" json:"totalSessions" yaml:"totalSessions"`
	TotalReviews  int     `bson:"total_reviews" json:"totalReviews" yaml:"totalReviews"`
}

// Skill is a catalog entry.
type Skill struct {
	ID              string     `bson:"_id" json:"id" yaml:"id"`
	Name            string     `bson:"name" json:"name" yaml:"name"`
	Category        Category   `bson:"category" json:"category" yaml:"category"`
	Subcategory     string     `bson:"subcategory,omitempty" json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	Description     string     `bson:"description" json:"description" yaml:"description"`
	Tags            []string   `bson:"tags" json:"tags" yaml:"tags"`
	Keywords        []string   `bson:"keywords" json:"keywords" yaml:"keywords"`
	AvailableLevels []Level    `bson:"available_levels" json:"availableLevels" yaml:"availableLevels"`
	Stats           SkillStats `bson:"stats" json:"stats" yaml:"stats"`
	Trending        bool       `bson:"trending" json:"trending" yaml:"trending"`
	PopularityScore float64    `bson:"popularity_score" json:"popularityScore" yaml:"popularityScore"`
	IsActive        bool       `bson:"is_active" json:"isActive" yaml:"isActive"`
	CreatedAt       time.Time  `bson:"created_at" json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updatedAt" yaml:"updatedAt"`
}

// Clone returns a deep copy so callers can never mutate store-owned slices.
func (s Skill) Clone() Skill {
	s.Tags = cloneStrings(s.Tags)
	s.Keywords = cloneStrings(s.Keywords)
	if s.AvailableLevels != nil {
		levels := make([]Level, len(s.AvailableLevels))
		copy(levels, s.AvailableLevels)
		s.AvailableLevels = levels
	}
	return s
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
