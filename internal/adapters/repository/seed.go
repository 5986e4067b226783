package repository

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/textmatch"
)

// Fixtures is the YAML seed document: a catalog and a member population.
type Fixtures struct {
	Skills  []model.Skill  `yaml:"skills"`
	Members []model.Member `yaml:"members"`
}

// Seeder bulk-loads fixtures into a backend.
type Seeder interface {
	Seed(ctx context.Context, fx Fixtures) error
}

// LoadFixtures reads a YAML fixture file.
func LoadFixtures(path string) (Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return DecodeFixtures(f)
}

// DecodeFixtures parses a YAML fixture document and validates it.
func DecodeFixtures(r io.Reader) (Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return Fixtures{}, err
	}
	return fx, nil
}

// Validate checks ids, unique skill names and enumerated values.
func (fx Fixtures) Validate() error {
	ids := make(map[string]struct{}, len(fx.Skills))
	names := make(map[string]struct{}, len(fx.Skills))
	for _, s := range fx.Skills {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("%w: skill needs an id and a name", ErrInvalidRecord)
		}
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("%w: duplicate skill id %q", ErrInvalidRecord, s.ID)
		}
		ids[s.ID] = struct{}{}
		folded := textmatch.Fold(s.Name)
		if _, dup := names[folded]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, s.Name)
		}
		names[folded] = struct{}{}
		if c, ok := model.ParseCategory(string(s.Category)); !ok || c != s.Category {
			return fmt.Errorf("%w: skill %q: unknown category %q", ErrInvalidRecord, s.ID, s.Category)
		}
		for _, l := range s.AvailableLevels {
			if !l.Valid() {
				return fmt.Errorf("%w: skill %q: unknown level %q", ErrInvalidRecord, s.ID, l)
			}
		}
	}

	members := make(map[string]struct{}, len(fx.Members))
	for _, m := range fx.Members {
		if m.ID == "" {
			return fmt.Errorf("%w: member needs an id", ErrInvalidRecord)
		}
		if _, dup := members[m.ID]; dup {
			return fmt.Errorf("%w: duplicate member id %q", ErrInvalidRecord, m.ID)
		}
		members[m.ID] = struct{}{}
		for _, l := range m.Skills {
			if !l.Level.Valid() {
				return fmt.Errorf("%w: member %q: unknown level %q", ErrInvalidRecord, m.ID, l.Level)
			}
			if l.YearsOfExperience < 0 {
				return fmt.Errorf("%w: member %q: negative years of experience", ErrInvalidRecord, m.ID)
			}
		}
	}
	return nil
}

// Seed replaces the store's contents with fx in a single snapshot swap.
func (s *MemoryStore) Seed(ctx context.Context, fx Fixtures) error {
	if err := fx.Validate(); err != nil {
		return err
	}
	return s.write(ctx, "seed", func(next *snapshot) error {
		next.skills = next.skills[:0]
		for _, sk := range fx.Skills {
			next.skills = upsertByID(next.skills, sk.Clone(), func(v *model.Skill) string { return v.ID })
		}
		next.members = next.members[:0]
		for i := range fx.Members {
			next.members = upsertByID(next.members, fx.Members[i].Clone(), func(v *model.Member) string { return v.ID })
		}
		return nil
	})
}
