package insights_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/skillswap/internal/domain/insights"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/search"
	"github.com/okian/skillswap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func skill(id, name string, cat model.Category, users int, rating, popularity float64) model.Skill {
	return model.Skill{
		ID:              id,
		Name:            name,
		Category:        cat,
		IsActive:        true,
		PopularityScore: popularity,
		Stats: model.SkillStats{
			TotalUsers:    users,
			TeachingUsers: users / 2,
			LearningUsers: users - users/2,
			AverageRating: rating,
		},
	}
}

func fixture() []model.Skill {
	java := skill("s-java", "Java", model.CategoryProgramming, 30, 4.8, 60)
	java.Tags = []string{"jvm"}
	js := skill("s-js", "JavaScript", model.CategoryProgramming, 50, 4.5, 80)
	js.Trending = true
	py := skill("s-py", "Python", model.CategoryProgramming, 70, 3.9, 90)
	py.Keywords = []string{"django"}
	guitar := skill("s-guitar", "Guitar", model.CategoryMusic, 20, 4.2, 40)
	empty := skill("s-lat", "Latin", model.CategoryLanguages, 0, 0, 1)
	gone := skill("s-cobol", "COBOL", model.CategoryProgramming, 999, 5, 999)
	gone.IsActive = false
	return []model.Skill{java, js, py, guitar, empty, gone}
}

type fakeCatalog struct {
	skills []model.Skill
	err    error
	calls  atomic.Int32
}

func (f *fakeCatalog) FindActiveSkills(ctx context.Context, _ query.SkillFilter) ([]model.Skill, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Skill, len(f.skills))
	copy(out, f.skills)
	return out, ctx.Err()
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
	err   error
}

func (c *memCache) Load(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Store(_ context.Context, key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func names(ss []insights.SkillSummary) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Name
	}
	return out
}

func TestTrending(t *testing.T) {
	Convey("Given the catalog fixture", t, func() {
		skills := fixture()

		Convey("Then trending skills come first, then popularity", func() {
			So(names(insights.Trending(skills, 10)), ShouldResemble, []string{"JavaScript", "Python", "Java", "Guitar", "Latin"})
		})

		Convey("Then the limit caps the list", func() {
			So(names(insights.Trending(skills, 2)), ShouldResemble, []string{"JavaScript", "Python"})
			So(insights.Trending(skills, 0), ShouldBeEmpty)
		})

		Convey("Then total users and rating break popularity ties", func() {
			a := skill("a", "A", model.CategoryArts, 10, 4, 50)
			b := skill("b", "B", model.CategoryArts, 20, 3, 50)
			c := skill("c", "C", model.CategoryArts, 20, 4, 50)
			So(names(insights.Trending([]model.Skill{a, b, c}, 3)), ShouldResemble, []string{"C", "B", "A"})
		})
	})
}

func TestCategories(t *testing.T) {
	Convey("Given the catalog fixture", t, func() {
		got := insights.Categories(fixture(), 2)

		Convey("Then categories are ordered by total users", func() {
			So(len(got), ShouldEqual, 3)
			So(got[0].Category, ShouldEqual, model.CategoryProgramming)
			So(got[1].Category, ShouldEqual, model.CategoryMusic)
			So(got[2].Category, ShouldEqual, model.CategoryLanguages)
		})

		Convey("Then inactive skills are left out of the totals", func() {
			So(got[0].Count, ShouldEqual, 3)
			So(got[0].TotalUsers, ShouldEqual, 150)
			So(got[0].TeachingUsers+got[0].LearningUsers, ShouldEqual, 150)
		})

		Convey("Then the rating is weighted by users and rounded to one decimal", func() {
			// (30*4.8 + 50*4.5 + 70*3.9) / 150 = 4.28
			So(got[0].AverageRating, ShouldEqual, 4.3)
		})

		Convey("Then the sample holds the most used names up to the cap", func() {
			So(got[0].Sample, ShouldResemble, []string{"Python", "JavaScript"})
		})

		Convey("Then a category nobody uses has a zero rating", func() {
			So(got[2].TotalUsers, ShouldEqual, 0)
			So(got[2].AverageRating, ShouldEqual, 0)
		})
	})

	Convey("Given an empty catalog", t, func() {
		So(insights.Categories(nil, 5), ShouldBeEmpty)
	})
}

func TestSuggest(t *testing.T) {
	Convey("Given the catalog fixture", t, func() {
		skills := fixture()

		Convey("When the term is a single character", func() {
			got := insights.Suggest(skills, "a")

			Convey("Then no suggestions are returned", func() {
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When the term is 'ja'", func() {
			got := insights.Suggest(skills, "ja")

			Convey("Then keyword matches rank alongside name matches by total users", func() {
				So(len(got), ShouldEqual, 3)
				So(got[0].Name, ShouldEqual, "Python")
				So(got[1].Name, ShouldEqual, "JavaScript")
				So(got[2].Name, ShouldEqual, "Java")
				for i := 1; i < len(got); i++ {
					So(got[i-1].TotalUsers, ShouldBeGreaterThanOrEqualTo, got[i].TotalUsers)
				}
			})
		})

		Convey("When the term only matches a tag, a keyword or a category", func() {
			So(insights.Suggest(skills, "JVM")[0].Name, ShouldEqual, "Java")
			So(insights.Suggest(skills, "djan")[0].Name, ShouldEqual, "Python")
			So(insights.Suggest(skills, "music")[0].Name, ShouldEqual, "Guitar")
		})

		Convey("When more than ten skills match", func() {
			var many []model.Skill
			for i := 0; i < 25; i++ {
				many = append(many, skill(fmt.Sprintf("k%02d", i), fmt.Sprintf("Knit %02d", i), model.CategoryArts, i, 4, 0))
			}
			got := insights.Suggest(many, "knit")
			So(len(got), ShouldEqual, insights.MaxSuggestions)
			So(got[0].Name, ShouldEqual, "Knit 24")
		})
	})
}

func TestPopular(t *testing.T) {
	Convey("Given the catalog fixture", t, func() {
		So(insights.Popular(fixture(), 3), ShouldResemble, []string{"Python", "JavaScript", "Java"})
	})
}

func TestService(t *testing.T) {
	Convey("Given a service without a cache", t, func() {
		cat := &fakeCatalog{skills: fixture()}
		svc := insights.NewService(cat, insights.WithMaxTrendingLimit(3), insights.WithSampleSize(1), insights.WithPopularLimit(2))
		ctx := context.Background()

		Convey("Then trending limits are defaulted and clamped", func() {
			So(svc.TrendingLimit(0), ShouldEqual, 3)
			So(svc.TrendingLimit(-5), ShouldEqual, 3)
			So(svc.TrendingLimit(2), ShouldEqual, 2)
			So(svc.TrendingLimit(500), ShouldEqual, 3)

			got, err := svc.GetTrending(ctx, 100)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 3)
		})

		Convey("Then category samples use the configured size", func() {
			got, err := svc.GetCategorySummary(ctx)
			So(err, ShouldBeNil)
			So(got[0].Sample, ShouldResemble, []string{"Python"})
		})

		Convey("Then short suggestion terms never reach the store", func() {
			got, err := svc.GetSuggestions(ctx, " a ")
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
			So(cat.calls.Load(), ShouldEqual, 0)
		})

		Convey("Then popular searches use the configured limit", func() {
			got, err := svc.GetPopularSearches(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{"Python", "JavaScript"})
		})
	})

	Convey("Given a failing catalog", t, func() {
		boom := errors.New("down")
		svc := insights.NewService(&fakeCatalog{err: boom})

		_, err := svc.GetTrending(context.Background(), 5)

		Convey("Then the failure surfaces as a store error", func() {
			So(errors.Is(err, search.ErrStore), ShouldBeTrue)
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})

	Convey("Given a service with a cache", t, func() {
		cat := &fakeCatalog{skills: fixture()}
		cache := &memCache{items: map[string][]byte{}}
		svc := insights.NewService(cat, insights.WithCache(cache))
		ctx := context.Background()

		first, err := svc.GetTrending(ctx, 2)
		So(err, ShouldBeNil)
		second, err := svc.GetTrending(ctx, 2)
		So(err, ShouldBeNil)

		Convey("Then the second call is served from the cache", func() {
			So(second, ShouldResemble, first)
			So(cat.calls.Load(), ShouldEqual, 1)
		})

		Convey("Then different limits use different keys", func() {
			_, err := svc.GetTrending(ctx, 3)
			So(err, ShouldBeNil)
			So(cat.calls.Load(), ShouldEqual, 2)
		})

		Convey("Then suggestions bypass the cache", func() {
			_, _ = svc.GetSuggestions(ctx, "ja")
			_, _ = svc.GetSuggestions(ctx, "ja")
			So(cat.calls.Load(), ShouldEqual, 3)
		})
	})

	Convey("Given a cache that is unavailable", t, func() {
		cat := &fakeCatalog{skills: fixture()}
		svc := insights.NewService(cat, insights.WithCache(&memCache{err: errors.New("no redis")}))

		got, err := svc.GetPopularSearches(context.Background())

		Convey("Then results are computed fresh", func() {
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 5)
			So(cat.calls.Load(), ShouldEqual, 1)
		})
	})
}
