// Package repository holds the catalog and member stores behind the search
// engine, the in-memory implementation and the YAML fixture loader.
package repository

import (
	"context"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
)

// CatalogStore reads and curates catalog skills.
type CatalogStore interface {
	// FindActiveSkills returns active skills, possibly a superset of f's matches.
	FindActiveSkills(ctx context.Context, f query.SkillFilter) ([]model.Skill, error)
	// FindSkillByName looks a skill up by case-insensitive name.
	// Returns ErrNotFound if no skill has that name.
	FindSkillByName(ctx context.Context, name string) (model.Skill, error)
	// UpsertSkill inserts or replaces a skill by id.
	UpsertSkill(ctx context.Context, s model.Skill) error
	// UpdateSkillStats replaces the stats and popularity of the named skill.
	// Returns ErrNotFound if no skill has that name.
	UpdateSkillStats(ctx context.Context, name string, stats model.SkillStats, popularity float64) error
}

// MemberStore reads and writes members with their listings.
type MemberStore interface {
	// FindActiveMembers returns active members, possibly a superset of f's matches.
	FindActiveMembers(ctx context.Context, f query.MemberFilter) ([]model.Member, error)
	// UpsertMember inserts or replaces a member by id.
	UpsertMember(ctx context.Context, m model.Member) error
}

// Store is a complete backend.
type Store interface {
	CatalogStore
	MemberStore
	// Counts returns the number of catalog skills and members.
	Counts(ctx context.Context) (skills, members int, err error)
	Close() error
}
