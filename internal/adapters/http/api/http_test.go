package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/skillswap/internal/adapters/http/api"
	service "github.com/okian/skillswap/internal/app"
	"github.com/okian/skillswap/internal/domain/insights"
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

type mockDeps struct {
	lastFilter query.RawFilter
	searchErr  error

	lastLimit int
	lastTerm  string
	insErr    error

	events    []model.ListingEvent
	submitErr error
	duplicate bool
}

func (m *mockDeps) Search(_ context.Context, raw query.RawFilter) (search.Result, error) {
	m.lastFilter = raw
	if m.searchErr != nil {
		return search.Result{}, m.searchErr
	}
	return search.Result{
		Skills:   search.Page[search.CatalogMatch]{Items: []search.CatalogMatch{}, CurrentPage: 1, PageSize: 20},
		Listings: search.Page[search.ListingMatch]{Items: []search.ListingMatch{}, CurrentPage: 1, PageSize: 20},
	}, nil
}

func (m *mockDeps) GetTrending(_ context.Context, limit int) ([]insights.SkillSummary, error) {
	m.lastLimit = limit
	return []insights.SkillSummary{{ID: "s-js", Name: "JavaScript", Trending: true}}, m.insErr
}

func (m *mockDeps) GetCategorySummary(context.Context) ([]insights.CategorySummary, error) {
	return []insights.CategorySummary{{Category: model.CategoryMusic, Count: 1, Sample: []string{"Guitar"}}}, m.insErr
}

func (m *mockDeps) GetSuggestions(_ context.Context, term string) ([]insights.SuggestionEntry, error) {
	m.lastTerm = term
	return []insights.SuggestionEntry{}, m.insErr
}

func (m *mockDeps) GetPopularSearches(context.Context) ([]string, error) {
	return []string{"JavaScript", "Java"}, m.insErr
}

func (m *mockDeps) SubmitListingEvent(_ context.Context, e model.ListingEvent) (bool, error) {
	if m.submitErr != nil {
		return false, m.submitErr
	}
	if err := e.Validate(); err != nil {
		return false, err
	}
	m.events = append(m.events, e)
	return !m.duplicate, nil
}

type mockStats struct{}

func (mockStats) GetStats(context.Context) map[string]interface{} {
	return map[string]interface{}{"started": true, "skills": 5}
}

func newRouter(deps *mockDeps) http.Handler {
	return api.NewServer(deps, mockStats{}).NewRouter()
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(rec *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestSearchEndpoint(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDeps{}
		h := newRouter(deps)

		Convey("When searching with a query string", func() {
			rec := do(h, http.MethodGet, "/search?q=guitar&level=beginner&level=expert&page=2", "")

			Convey("Then scalars stay strings and repeated params become lists", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastFilter["q"], ShouldEqual, "guitar")
				So(deps.lastFilter["page"], ShouldEqual, "2")
				So(deps.lastFilter["level"], ShouldResemble, []string{"beginner", "expert"})
				So(rec.Body.String(), ShouldContainSubstring, `"skills"`)
				So(rec.Body.String(), ShouldContainSubstring, `"listings"`)
			})
		})

		Convey("When searching with a JSON body", func() {
			rec := do(h, http.MethodPost, "/search", `{"query":"java","minRating":4.5,"levels":["advanced"]}`)

			Convey("Then numbers are kept exact for the normalizer", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastFilter["query"], ShouldEqual, "java")
				So(deps.lastFilter["minRating"], ShouldEqual, json.Number("4.5"))
			})
		})

		Convey("When the body is malformed", func() {
			rec := do(h, http.MethodPost, "/search", `{"query":`)

			Convey("Then it is a bad request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(rec)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the filter fails validation", func() {
			deps.searchErr = &query.ValidationError{Field: query.FieldCategory, Reason: "unknown category"}
			rec := do(h, http.MethodGet, "/search?category=Knitting", "")

			Convey("Then the response names the field", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(rec)
				So(body["code"], ShouldEqual, "invalid_filter")
				So(body["field"], ShouldEqual, query.FieldCategory)
			})
		})

		Convey("When a store read fails", func() {
			deps.searchErr = &search.StoreError{Stage: search.StageMembers, Err: errors.New("connection reset")}
			rec := do(h, http.MethodGet, "/search?q=java", "")

			Convey("Then the search is unavailable", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(rec)["code"], ShouldEqual, "store_unavailable")
			})
		})

		Convey("When an unexpected error occurs", func() {
			deps.searchErr = errors.New("boom")
			rec := do(h, http.MethodGet, "/search", "")
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the method is not allowed", func() {
			rec := do(h, http.MethodDelete, "/search", "")
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSkillsEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDeps{}
		h := newRouter(deps)

		Convey("When asking for trending skills with a limit", func() {
			rec := do(h, http.MethodGet, "/skills/trending?limit=5", "")

			Convey("Then the limit reaches the service", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 5)
				So(rec.Body.String(), ShouldContainSubstring, "JavaScript")
			})
		})

		Convey("When the limit is omitted", func() {
			do(h, http.MethodGet, "/skills/trending", "")
			So(deps.lastLimit, ShouldEqual, 0)
		})

		Convey("When the limit is not a number", func() {
			rec := do(h, http.MethodGet, "/skills/trending?limit=lots", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When asking for categories, suggestions and popular terms", func() {
			categories := do(h, http.MethodGet, "/skills/categories", "")
			suggestions := do(h, http.MethodGet, "/skills/suggestions?q=gu", "")
			popular := do(h, http.MethodGet, "/skills/popular", "")

			Convey("Then each responds with JSON", func() {
				So(categories.Code, ShouldEqual, http.StatusOK)
				So(categories.Body.String(), ShouldContainSubstring, `"category":"Music & Audio"`)
				var cats []insights.CategorySummary
				So(json.Unmarshal(categories.Body.Bytes(), &cats), ShouldBeNil)
				So(cats[0].Category, ShouldEqual, model.CategoryMusic)
				So(suggestions.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(suggestions.Body.String()), ShouldEqual, "[]")
				So(deps.lastTerm, ShouldEqual, "gu")
				So(popular.Code, ShouldEqual, http.StatusOK)
				So(popular.Body.String(), ShouldContainSubstring, `["JavaScript","Java"]`)
			})
		})

		Convey("When the catalog store fails", func() {
			deps.insErr = &search.StoreError{Stage: search.StageCatalog, Err: errors.New("timeout")}
			rec := do(h, http.MethodGet, "/skills/categories", "")
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestListingEventsEndpoint(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDeps{}
		h := newRouter(deps)

		Convey("When a valid event is posted", func() {
			rec := do(h, http.MethodPost, "/listings/events", `{"event_id":"evt-1","member_id":"m-1","skill_name":"Guitar","kind":"added"}`)

			Convey("Then it is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
				So(deps.events, ShouldHaveLength, 1)
			})
		})

		Convey("When the event id is omitted", func() {
			rec := do(h, http.MethodPost, "/listings/events", `{"member_id":"m-1","skill_name":"Guitar","kind":"removed"}`)

			Convey("Then one is generated and echoed", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.events[0].EventID, ShouldNotBeEmpty)
				So(rec.Body.String(), ShouldContainSubstring, deps.events[0].EventID)
			})
		})

		Convey("When the event was seen before", func() {
			deps.duplicate = true
			rec := do(h, http.MethodPost, "/listings/events", `{"event_id":"evt-1","skill_name":"Guitar","kind":"added"}`)

			Convey("Then it is acknowledged as a duplicate", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the event is invalid or malformed", func() {
			invalid := do(h, http.MethodPost, "/listings/events", `{"event_id":"evt-1","skill_name":"Guitar","kind":"merged"}`)
			malformed := do(h, http.MethodPost, "/listings/events", `not json`)

			Convey("Then both are bad requests", func() {
				So(invalid.Code, ShouldEqual, http.StatusBadRequest)
				So(malformed.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the refresh queue is full", func() {
			deps.submitErr = fmt.Errorf("%w: event evt-1", service.ErrQueueFull)
			rec := do(h, http.MethodPost, "/listings/events", `{"event_id":"evt-1","skill_name":"Guitar","kind":"added"}`)

			Convey("Then the client is asked to back off", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(rec)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the service has not started", func() {
			deps.submitErr = service.ErrNotStarted
			rec := do(h, http.MethodPost, "/listings/events", `{"event_id":"evt-1","skill_name":"Guitar","kind":"added"}`)
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		h := newRouter(&mockDeps{})

		Convey("Then /stats returns the provider's map", func() {
			rec := do(h, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"skills":5`)
		})

		Convey("Then /healthz serves prometheus metrics", func() {
			do(h, http.MethodGet, "/search", "")
			rec := do(h, http.MethodGet, "/healthz", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("Then every response carries a request id", func() {
			rec := do(h, http.MethodGet, "/stats", "")
			So(rec.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			req.Header.Set(api.HeaderRequestID, "req-42")
			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get(api.HeaderRequestID), ShouldEqual, "req-42")
		})

		Convey("Then unknown paths are JSON 404s", func() {
			rec := do(h, http.MethodGet, "/members/unknown", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(rec)["code"], ShouldEqual, "not_found")
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given a wrapped handler error", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.search", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause are reachable", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.search: bad request: eof")
			So(api.NewKind("api.x", api.ErrBackpressure).Error(), ShouldEqual, "api.x: backpressure")
			So(errors.Is(api.Wrap("api.x", cause), api.ErrInternal), ShouldBeTrue)
		})
	})
}
