// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/skillswap/internal/domain/insights"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/search"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SearchDependencies
	SkillsDependencies
	EventDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	searchHandler *SearchHandler
	skillsHandler *SkillsHandler
	eventsHandler *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		searchHandler: NewSearchHandler(deps),
		skillsHandler: NewSkillsHandler(deps),
		eventsHandler: NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(router *mux.Router) {
	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	router.HandleFunc("/search", MetricsMiddleware(s.searchHandler.HandleSearch, "search")).Methods(http.MethodGet, http.MethodPost)

	skills := router.PathPrefix("/skills").Subrouter()
	skills.HandleFunc("/trending", MetricsMiddleware(s.skillsHandler.HandleTrending, "skills_trending")).Methods(http.MethodGet)
	skills.HandleFunc("/categories", MetricsMiddleware(s.skillsHandler.HandleCategories, "skills_categories")).Methods(http.MethodGet)
	skills.HandleFunc("/suggestions", MetricsMiddleware(s.skillsHandler.HandleSuggestions, "skills_suggestions")).Methods(http.MethodGet)
	skills.HandleFunc("/popular", MetricsMiddleware(s.skillsHandler.HandlePopular, "skills_popular")).Methods(http.MethodGet)

	router.HandleFunc("/listings/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "listing_events")).Methods(http.MethodPost)
}

// NewRouter returns a router with every route registered.
func (s *Server) NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	s.Register(router)
	return router
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	// Category names carry '&'; keep them readable on the wire.
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps engine errors onto status codes: validation
// failures are the caller's, store failures are ours and retryable.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *query.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "invalid_filter",
			Message: WrapKind(op, ErrBadRequest, err).Error(),
			Field:   verr.Field,
		})
	case errors.Is(err, search.ErrStore):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// SearchDependencies runs searches.
type SearchDependencies interface {
	Search(ctx context.Context, raw query.RawFilter) (search.Result, error)
}

// SkillsDependencies serves the catalog insight endpoints.
type SkillsDependencies interface {
	GetTrending(ctx context.Context, limit int) ([]insights.SkillSummary, error)
	GetCategorySummary(ctx context.Context) ([]insights.CategorySummary, error)
	GetSuggestions(ctx context.Context, term string) ([]insights.SuggestionEntry, error)
	GetPopularSearches(ctx context.Context) ([]string, error)
}

// EventDependencies accepts listing events for the stats refresher.
type EventDependencies interface {
	SubmitListingEvent(ctx context.Context, e model.ListingEvent) (bool, error)
}
