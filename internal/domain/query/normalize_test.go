package query_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	. "github.com/smartystreets/goconvey/convey"
)

func fieldOf(err error) string {
	var ve *query.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

func TestNormalizeDefaults(t *testing.T) {
	Convey("Given an empty filter", t, func() {
		q, err := query.Normalize(nil)

		Convey("Then defaults are applied", func() {
			So(err, ShouldBeNil)
			So(q.Query, ShouldEqual, "")
			So(q.Category, ShouldEqual, model.Category(""))
			So(q.Levels.Empty(), ShouldBeTrue)
			So(q.Intent, ShouldEqual, query.IntentBoth)
			So(q.SortBy, ShouldEqual, query.SortRelevance)
			So(q.Page, ShouldEqual, 1)
			So(q.PageSize, ShouldEqual, query.DefaultPageSize)
			So(q.MinRating, ShouldEqual, 0)
		})
	})

	Convey("Given a normalizer with a custom default page size", t, func() {
		q, err := query.Normalize(query.RawFilter{}, query.WithDefaultPageSize(20), query.WithMaxPageSize(50))
		So(err, ShouldBeNil)
		So(q.PageSize, ShouldEqual, 20)
	})
}

func TestNormalizeCoercion(t *testing.T) {
	Convey("Given loosely typed input", t, func() {
		Convey("When strings carry whitespace", func() {
			q, err := query.Normalize(query.RawFilter{"query": "  java  ", "location": " Berlin "})
			So(err, ShouldBeNil)
			So(q.Query, ShouldEqual, "java")
			So(q.Location, ShouldEqual, "Berlin")
		})

		Convey("When aliases are used", func() {
			q, err := query.Normalize(query.RawFilter{"q": "go", "intent": "learning", "sort": "rating", "limit": "5", "rating": "4"})
			So(err, ShouldBeNil)
			So(q.Query, ShouldEqual, "go")
			So(q.Intent, ShouldEqual, query.IntentLearning)
			So(q.SortBy, ShouldEqual, query.SortRating)
			So(q.PageSize, ShouldEqual, 5)
			So(q.MinRating, ShouldEqual, 4)
		})

		Convey("When the level set arrives as a scalar", func() {
			q, err := query.Normalize(query.RawFilter{"level": "beginner"})
			So(err, ShouldBeNil)
			So(q.Levels.Levels(), ShouldResemble, []model.Level{model.LevelBeginner})
		})

		Convey("When the level set arrives as an array or comma list", func() {
			q1, err := query.Normalize(query.RawFilter{"level": []any{"expert", "Beginner"}})
			So(err, ShouldBeNil)
			q2, err := query.Normalize(query.RawFilter{"level": "beginner, expert"})
			So(err, ShouldBeNil)
			So(q1.Levels, ShouldEqual, q2.Levels)
			So(q1.Levels.Has(model.LevelExpert), ShouldBeTrue)
			So(q1.Levels.Has(model.LevelAdvanced), ShouldBeFalse)
		})

		Convey("When an empty level array is given", func() {
			q, err := query.Normalize(query.RawFilter{"level": []string{}})
			So(err, ShouldBeNil)
			So(q.Levels.Empty(), ShouldBeTrue)
		})

		Convey("When page and pageSize are out of range", func() {
			q, err := query.Normalize(query.RawFilter{"page": -3, "pageSize": 1000})
			So(err, ShouldBeNil)
			So(q.Page, ShouldEqual, 1)
			So(q.PageSize, ShouldEqual, query.MaxPageSize)

			q, err = query.Normalize(query.RawFilter{"page": "0", "pageSize": "0"})
			So(err, ShouldBeNil)
			So(q.Page, ShouldEqual, 1)
			So(q.PageSize, ShouldEqual, 1)
		})

		Convey("When numbers come from a JSON body", func() {
			q, err := query.Normalize(query.RawFilter{"page": json.Number("3"), "pageSize": 12.0})
			So(err, ShouldBeNil)
			So(q.Page, ShouldEqual, 3)
			So(q.PageSize, ShouldEqual, 12)
		})

		Convey("When minRating is out of range", func() {
			q, err := query.Normalize(query.RawFilter{"minRating": 9})
			So(err, ShouldBeNil)
			So(q.MinRating, ShouldEqual, 5)

			q, err = query.Normalize(query.RawFilter{"minRating": -1})
			So(err, ShouldBeNil)
			So(q.MinRating, ShouldEqual, 0)
		})

		Convey("When sortBy is unknown", func() {
			q, err := query.Normalize(query.RawFilter{"sortBy": "alphabetical"})
			So(err, ShouldBeNil)
			So(q.SortBy, ShouldEqual, query.SortRelevance)
		})

		Convey("When the category differs in case", func() {
			q, err := query.Normalize(query.RawFilter{"category": "languages"})
			So(err, ShouldBeNil)
			So(q.Category, ShouldEqual, model.CategoryLanguages)
		})

		Convey("When category is 'all'", func() {
			q, err := query.Normalize(query.RawFilter{"category": "all"})
			So(err, ShouldBeNil)
			So(q.Category, ShouldEqual, model.Category(""))
		})
	})
}

func TestNormalizeValidation(t *testing.T) {
	Convey("Given structurally invalid input", t, func() {
		cases := []struct {
			name  string
			raw   query.RawFilter
			field string
		}{
			{"non-numeric rating", query.RawFilter{"minRating": "high"}, query.FieldMinRating},
			{"non-numeric page", query.RawFilter{"page": "two"}, query.FieldPage},
			{"non-numeric pageSize", query.RawFilter{"limit": "lots"}, query.FieldPageSize},
			{"unknown level", query.RawFilter{"level": []string{"beginner", "guru"}}, query.FieldLevel},
			{"unknown intent", query.RawFilter{"type": "mentoring"}, query.FieldType},
			{"unknown category", query.RawFilter{"category": "Astrology"}, query.FieldCategory},
			{"multi-valued query", query.RawFilter{"query": []string{"a", "b"}}, query.FieldQuery},
			{"object as level", query.RawFilter{"level": map[string]any{"x": 1}}, query.FieldLevel},
		}

		for _, tc := range cases {
			Convey("When the input has a "+tc.name, func() {
				_, err := query.Normalize(tc.raw)

				Convey("Then a ValidationError names the field", func() {
					So(err, ShouldNotBeNil)
					So(errors.Is(err, query.ErrValidation), ShouldBeTrue)
					So(fieldOf(err), ShouldEqual, tc.field)
				})
			})
		}
	})
}

func TestPushDownFilters(t *testing.T) {
	Convey("Given a normalized query", t, func() {
		q, err := query.Normalize(query.RawFilter{
			"query":     "guitar",
			"category":  "Music & Audio",
			"level":     "advanced,beginner",
			"type":      "teaching",
			"location":  "Lisbon",
			"minRating": 3.5,
		})
		So(err, ShouldBeNil)

		Convey("Then the skill filter carries the catalog predicates", func() {
			f := q.SkillFilter()
			So(f.Term, ShouldEqual, "guitar")
			So(f.Category, ShouldEqual, model.CategoryMusic)
			So(f.Levels, ShouldResemble, []model.Level{model.LevelBeginner, model.LevelAdvanced})
			So(f.Intent, ShouldEqual, query.IntentTeaching)
			So(f.MinRating, ShouldEqual, 3.5)
		})

		Convey("Then the member filter carries the member predicates", func() {
			f := q.MemberFilter()
			So(f.Location, ShouldEqual, "Lisbon")
			So(f.Term, ShouldEqual, "guitar")
			So(f.Intent, ShouldEqual, query.IntentTeaching)
		})

		Convey("Then the offset follows the page", func() {
			q.Page = 3
			q.PageSize = 10
			So(q.Offset(), ShouldEqual, 20)
		})
	})
}

func TestLevelSet(t *testing.T) {
	Convey("Given level sets", t, func() {
		empty := query.LevelSet(0)
		So(empty.Accepts(model.LevelExpert), ShouldBeTrue)
		So(empty.AcceptsAny(nil), ShouldBeTrue)

		s := query.NewLevelSet(model.LevelIntermediate, model.Level("bogus"))
		So(s.Has(model.LevelIntermediate), ShouldBeTrue)
		So(s.Accepts(model.LevelBeginner), ShouldBeFalse)
		So(s.AcceptsAny([]model.Level{model.LevelBeginner, model.LevelIntermediate}), ShouldBeTrue)
		So(s.AcceptsAny([]model.Level{model.LevelExpert}), ShouldBeFalse)
		So(s.AcceptsAny(nil), ShouldBeFalse)
	})
}
