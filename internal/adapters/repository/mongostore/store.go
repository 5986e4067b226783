// Package mongostore is the MongoDB backend for the catalog and member
// stores. Filters are pushed down as regex, $in and $elemMatch queries.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

const backendMongo = "mongo"

// Config locates the database and collections.
type Config struct {
	URI               string
	Database          string
	SkillsCollection  string
	MembersCollection string
	Timeout           time.Duration
}

// Store implements repository.Store on MongoDB.
type Store struct {
	client  *mongo.Client
	skills  *mongo.Collection
	members *mongo.Collection
	now     func() time.Time
	logger  logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Connect dials Mongo, verifies the connection and returns a Store.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", repository.ErrStore, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %w", repository.ErrStore, err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:  client,
		skills:  db.Collection(cfg.SkillsCollection),
		members: db.Collection(cfg.MembersCollection),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("mongostore")
	}
	s.logger.Info(ctx, "connected to mongo",
		logger.String("database", cfg.Database),
		logger.String("skills", cfg.SkillsCollection),
		logger.String("members", cfg.MembersCollection),
	)
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("%w: disconnect: %w", repository.ErrStore, err)
	}
	return nil
}

// InitializeIndexes creates the indexes the push-down filters rely on.
func (s *Store) InitializeIndexes(ctx context.Context) error {
	if _, err := s.skills.Indexes().CreateMany(ctx, skillIndexes()); err != nil {
		return fmt.Errorf("%w: create skill indexes: %w", repository.ErrStore, err)
	}
	if _, err := s.members.Indexes().CreateMany(ctx, memberIndexes()); err != nil {
		return fmt.Errorf("%w: create member indexes: %w", repository.ErrStore, err)
	}
	return nil
}

func skillIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "trending", Value: -1}, {Key: "popularity_score", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	}
}

func memberIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "stats.rating", Value: -1}}},
		{Keys: bson.D{{Key: "skills.name", Value: 1}}},
		{Keys: bson.D{{Key: "location.country", Value: 1}, {Key: "location.city", Value: 1}}},
	}
}

// FindActiveSkills returns the active skills matching f.
func (s *Store) FindActiveSkills(ctx context.Context, f query.SkillFilter) ([]model.Skill, error) {
	start := time.Now()
	defer recordQuery("skills", start)

	cur, err := s.skills.Find(ctx, skillFilterDoc(f))
	if err != nil {
		return nil, fmt.Errorf("%w: find skills: %w", repository.ErrStore, err)
	}
	out := []model.Skill{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%w: decode skills: %w", repository.ErrStore, err)
	}
	return out, nil
}

// FindActiveMembers returns the active members that may match f.
func (s *Store) FindActiveMembers(ctx context.Context, f query.MemberFilter) ([]model.Member, error) {
	start := time.Now()
	defer recordQuery("members", start)

	cur, err := s.members.Find(ctx, memberFilterDoc(f))
	if err != nil {
		return nil, fmt.Errorf("%w: find members: %w", repository.ErrStore, err)
	}
	out := []model.Member{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%w: decode members: %w", repository.ErrStore, err)
	}
	return out, nil
}

// FindSkillByName looks a skill up by case-insensitive name.
func (s *Store) FindSkillByName(ctx context.Context, name string) (model.Skill, error) {
	var sk model.Skill
	err := s.skills.FindOne(ctx, bson.D{{Key: "name", Value: exactRegex(name)}}).Decode(&sk)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Skill{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Skill{}, fmt.Errorf("%w: find skill %q: %w", repository.ErrStore, name, err)
	}
	return sk, nil
}

// UpsertSkill inserts or replaces a skill by id.
func (s *Store) UpsertSkill(ctx context.Context, sk model.Skill) error {
	if sk.ID == "" || sk.Name == "" {
		return fmt.Errorf("%w: skill needs an id and a name", repository.ErrInvalidRecord)
	}
	start := time.Now()
	defer recordUpdate("skills", start)

	_, err := s.skills.ReplaceOne(ctx, bson.D{{Key: "_id", Value: sk.ID}}, sk, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %q", repository.ErrDuplicateName, sk.Name)
	}
	if err != nil {
		return fmt.Errorf("%w: upsert skill %q: %w", repository.ErrStore, sk.ID, err)
	}
	return nil
}

// UpsertMember inserts or replaces a member by id.
func (s *Store) UpsertMember(ctx context.Context, m model.Member) error {
	if m.ID == "" {
		return fmt.Errorf("%w: member needs an id", repository.ErrInvalidRecord)
	}
	start := time.Now()
	defer recordUpdate("members", start)

	if _, err := s.members.ReplaceOne(ctx, bson.D{{Key: "_id", Value: m.ID}}, m, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("%w: upsert member %q: %w", repository.ErrStore, m.ID, err)
	}
	return nil
}

// UpdateSkillStats replaces the stats and popularity of the named skill.
func (s *Store) UpdateSkillStats(ctx context.Context, name string, stats model.SkillStats, popularity float64) error {
	start := time.Now()
	defer recordUpdate("skills", start)

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "stats", Value: stats},
		{Key: "popularity_score", Value: popularity},
		{Key: "updated_at", Value: s.now().UTC()},
	}}}
	res, err := s.skills.UpdateOne(ctx, bson.D{{Key: "name", Value: exactRegex(name)}}, update)
	if err != nil {
		return fmt.Errorf("%w: update stats for %q: %w", repository.ErrStore, name, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Counts returns estimated collection sizes.
func (s *Store) Counts(ctx context.Context) (int, int, error) {
	skills, err := s.skills.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: count skills: %w", repository.ErrStore, err)
	}
	members, err := s.members.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: count members: %w", repository.ErrStore, err)
	}
	metrics.UpdateCatalogSize(int(skills))
	metrics.UpdateMemberCount(int(members))
	return int(skills), int(members), nil
}

// Seed upserts every fixture record in two bulk writes.
func (s *Store) Seed(ctx context.Context, fx repository.Fixtures) error {
	if err := fx.Validate(); err != nil {
		return err
	}
	start := time.Now()
	defer recordUpdate("seed", start)

	if len(fx.Skills) > 0 {
		writes := make([]mongo.WriteModel, len(fx.Skills))
		for i, sk := range fx.Skills {
			writes[i] = mongo.NewReplaceOneModel().
				SetFilter(bson.D{{Key: "_id", Value: sk.ID}}).
				SetReplacement(sk).
				SetUpsert(true)
		}
		if _, err := s.skills.BulkWrite(ctx, writes); err != nil {
			return fmt.Errorf("%w: seed skills: %w", repository.ErrStore, err)
		}
	}
	if len(fx.Members) > 0 {
		writes := make([]mongo.WriteModel, len(fx.Members))
		for i, m := range fx.Members {
			writes[i] = mongo.NewReplaceOneModel().
				SetFilter(bson.D{{Key: "_id", Value: m.ID}}).
				SetReplacement(m).
				SetUpsert(true)
		}
		if _, err := s.members.BulkWrite(ctx, writes); err != nil {
			return fmt.Errorf("%w: seed members: %w", repository.ErrStore, err)
		}
	}
	s.logger.Info(ctx, "seeded mongo",
		logger.Int("skills", len(fx.Skills)),
		logger.Int("members", len(fx.Members)),
	)
	return nil
}

// Drop removes both collections and their indexes.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.skills.Drop(ctx); err != nil {
		return fmt.Errorf("%w: drop skills: %w", repository.ErrStore, err)
	}
	if err := s.members.Drop(ctx); err != nil {
		return fmt.Errorf("%w: drop members: %w", repository.ErrStore, err)
	}
	s.logger.Info(ctx, "dropped collections")
	return nil
}

func recordQuery(collection string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(backendMongo, collection, float64(time.Since(start).Microseconds())/1000)
}

func recordUpdate(collection string, start time.Time) {
	metrics.RecordRepositoryUpdateLatency(backendMongo, collection, float64(time.Since(start).Microseconds())/1000)
}

var (
	_ repository.Store  = (*Store)(nil)
	_ repository.Seeder = (*Store)(nil)
)
