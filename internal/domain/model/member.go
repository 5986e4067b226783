package model

import "time"

// Location is a member's free-text whereabouts.
type Location struct {
	City    string `bson:"city" json:"city" yaml:"city"`
	Country string `bson:"country" json:"country" yaml:"country"`
}

// MemberStats aggregates a member's session history.
type MemberStats struct {
	Rating        float64 `bson:"rating" json:"rating" yaml:"rating"`
	TotalSessions int     `bson:"total_sessions" json:"totalSessions" yaml:"totalSessions"`
	TotalReviews  int     `bson:"total_reviews" json:"totalReviews" yaml:"totalReviews"`
}

// SkillListing is a personal skill claim embedded in a Member. Its name is
// free text and need not exist in the catalog.
type SkillListing struct {
	ID                string   `bson:"id" json:"id" yaml:"id"`
	Name              string   `bson:"name" json:"name" yaml:"name"`
	Category          Category `bson:"category" json:"category" yaml:"category"`
	Level             Level    `bson:"level" json:"level" yaml:"level"`
	Description       string   `bson:"description" json:"description" yaml:"description"`
	Tags              []string `bson:"tags" json:"tags" yaml:"tags"`
	YearsOfExperience int      `bson:"years_of_experience" json:"yearsOfExperience" yaml:"yearsOfExperience"`
	IsTeaching        bool     `bson:"is_teaching" json:"isTeaching" yaml:"isTeaching"`
	IsLearning        bool     `bson:"is_learning" json:"isLearning" yaml:"isLearning"`
}

// Member owns an ordered collection of listings.
type Member struct {
	ID        string         `bson:"_id" json:"id" yaml:"id"`
	Name      string         `bson:"name" json:"name" yaml:"name"`
	Email     string         `bson:"email" json:"-" yaml:"email"`
	Avatar    string         `bson:"avatar" json:"avatar" yaml:"avatar"`
	Bio       string         `bson:"bio" json:"bio" yaml:"bio"`
	Location  Location       `bson:"location" json:"location" yaml:"location"`
	Stats     MemberStats    `bson:"stats" json:"stats" yaml:"stats"`
	Skills    []SkillListing `bson:"skills" json:"skills" yaml:"skills"`
	IsActive  bool           `bson:"is_active" json:"isActive" yaml:"isActive"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt" yaml:"createdAt"`
}

// MemberSnapshot is the public projection of a Member embedded in listing
// search rows. It never carries the email or the listings.
type MemberSnapshot struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Avatar    string      `json:"avatar"`
	Bio       string      `json:"bio"`
	Location  Location    `json:"location"`
	Stats     MemberStats `json:"stats"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Snapshot returns the public projection of m.
func (m *Member) Snapshot() MemberSnapshot {
	return MemberSnapshot{
		ID:        m.ID,
		Name:      m.Name,
		Avatar:    m.Avatar,
		Bio:       m.Bio,
		Location:  m.Location,
		Stats:     m.Stats,
		CreatedAt: m.CreatedAt,
	}
}

// Clone returns a deep copy of m including its listings.
func (m *Member) Clone() Member {
	c := *m
	if m.Skills != nil {
		c.Skills = make([]SkillListing, len(m.Skills))
		for i, l := range m.Skills {
			l.Tags = cloneStrings(l.Tags)
			c.Skills[i] = l
		}
	}
	return c
}
