package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/textmatch"
	"github.com/okian/skillswap/pkg/metrics"
)

const backendMemory = "memory"

// snapshot is an immutable view of both collections. Readers load it
// without locking; writers build a new one and swap it in.
type snapshot struct {
	skills  []model.Skill  // ordered by id
	byName  map[string]int // folded name -> index in skills
	members []model.Member // ordered by id
}

func emptySnapshot() *snapshot {
	return &snapshot{byName: map[string]int{}}
}

// MemoryStore is an in-memory Store with copy-on-write snapshots.
// Reads never block writes or each other.
type MemoryStore struct {
	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
	now  func() time.Time

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an empty store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap.Store(emptySnapshot())
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// FindActiveSkills returns clones of the active skills that can satisfy f.
// Category, rating floor and term are pushed down; levels and intent are
// left to the search stage.
func (s *MemoryStore) FindActiveSkills(ctx context.Context, f query.SkillFilter) ([]model.Skill, error) {
	start := time.Now()
	defer recordQuery("skills", start)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	term := textmatch.NewTerm(f.Term)
	snap := s.snap.Load()
	out := make([]model.Skill, 0, len(snap.skills))
	for i := range snap.skills {
		sk := &snap.skills[i]
		if !sk.IsActive {
			continue
		}
		if f.Category != "" && sk.Category != f.Category {
			continue
		}
		if sk.Stats.AverageRating < f.MinRating {
			continue
		}
		if !term.In(sk.Name) && !term.In(sk.Description) && !term.In(string(sk.Category)) &&
			!term.InAny(sk.Tags) && !term.InAny(sk.Keywords) {
			continue
		}
		out = append(out, sk.Clone())
	}
	return out, nil
}

// FindActiveMembers returns clones of the active members that can satisfy
// f. Only the rating floor is pushed down; a term may match the member or
// any listing so every other predicate is left to the search stage.
func (s *MemoryStore) FindActiveMembers(ctx context.Context, f query.MemberFilter) ([]model.Member, error) {
	start := time.Now()
	defer recordQuery("members", start)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	snap := s.snap.Load()
	out := make([]model.Member, 0, len(snap.members))
	for i := range snap.members {
		m := &snap.members[i]
		if !m.IsActive || len(m.Skills) == 0 || m.Stats.Rating < f.MinRating {
			continue
		}
		out = append(out, m.Clone())
	}
	return out, nil
}

// FindSkillByName looks a skill up by case-insensitive name.
func (s *MemoryStore) FindSkillByName(ctx context.Context, name string) (model.Skill, error) {
	if err := ctx.Err(); err != nil {
		return model.Skill{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	snap := s.snap.Load()
	i, ok := snap.byName[textmatch.Fold(name)]
	if !ok {
		return model.Skill{}, ErrNotFound
	}
	return snap.skills[i].Clone(), nil
}

// UpsertSkill inserts or replaces a skill by id. Names stay unique
// case-insensitively.
func (s *MemoryStore) UpsertSkill(ctx context.Context, sk model.Skill) error {
	if sk.ID == "" || sk.Name == "" {
		return fmt.Errorf("%w: skill needs an id and a name", ErrInvalidRecord)
	}
	return s.write(ctx, "skills", func(next *snapshot) error {
		folded := textmatch.Fold(sk.Name)
		if i, ok := next.byName[folded]; ok && next.skills[i].ID != sk.ID {
			return fmt.Errorf("%w: %q", ErrDuplicateName, sk.Name)
		}
		next.skills = upsertByID(next.skills, sk.Clone(), func(v *model.Skill) string { return v.ID })
		return nil
	})
}

// UpsertMember inserts or replaces a member by id.
func (s *MemoryStore) UpsertMember(ctx context.Context, m model.Member) error {
	if m.ID == "" {
		return fmt.Errorf("%w: member needs an id", ErrInvalidRecord)
	}
	return s.write(ctx, "members", func(next *snapshot) error {
		next.members = upsertByID(next.members, m.Clone(), func(v *model.Member) string { return v.ID })
		return nil
	})
}

// UpdateSkillStats replaces the stats and popularity of the named skill.
func (s *MemoryStore) UpdateSkillStats(ctx context.Context, name string, stats model.SkillStats, popularity float64) error {
	return s.write(ctx, "skills", func(next *snapshot) error {
		i, ok := next.byName[textmatch.Fold(name)]
		if !ok {
			return ErrNotFound
		}
		next.skills[i].Stats = stats
		next.skills[i].PopularityScore = popularity
		next.skills[i].UpdatedAt = s.now().UTC()
		return nil
	})
}

// Counts returns the number of catalog skills and members.
func (s *MemoryStore) Counts(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	snap := s.snap.Load()
	return len(snap.skills), len(snap.members), nil
}

// write copies the current snapshot, applies fn and publishes the result.
// Slices are copied shallowly; fn must replace elements, not edit shared
// slice fields in place.
func (s *MemoryStore) write(ctx context.Context, collection string, fn func(next *snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(backendMemory, collection, msSince(start))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	next := &snapshot{
		skills:  append([]model.Skill(nil), cur.skills...),
		byName:  cur.byName,
		members: append([]model.Member(nil), cur.members...),
	}
	if err := fn(next); err != nil {
		return err
	}
	rebuildStart := time.Now()
	next.index()
	s.snap.Store(next)
	metrics.RecordRepositorySnapshotRebuildDuration(msSince(rebuildStart))
	return nil
}

// index rebuilds byName. Until then byName is the previous snapshot's map,
// which stays valid for lookups because fn never reorders existing skills.
func (n *snapshot) index() {
	n.byName = make(map[string]int, len(n.skills))
	for i := range n.skills {
		n.byName[textmatch.Fold(n.skills[i].Name)] = i
	}
}

// upsertByID replaces the element with v's id or inserts v keeping the
// slice ordered by id.
func upsertByID[T any](items []T, v T, id func(*T) string) []T {
	key := id(&v)
	i := sort.Search(len(items), func(i int) bool { return id(&items[i]) >= key })
	if i < len(items) && id(&items[i]) == key {
		items[i] = v
		return items
	}
	items = append(items, v)
	copy(items[i+1:], items[i:])
	items[i] = v
	return items
}

// startMetricsUpdater starts a background goroutine that updates repository metrics.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	snap := s.snap.Load()
	metrics.UpdateCatalogSize(len(snap.skills))
	metrics.UpdateMemberCount(len(snap.members))
}

func recordQuery(collection string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(backendMemory, collection, msSince(start))
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Seeder = (*MemoryStore)(nil)
)
