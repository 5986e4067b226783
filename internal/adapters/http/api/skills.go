package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// SkillsHandler serves the catalog insight endpoints.
type SkillsHandler struct {
	deps SkillsDependencies
}

// NewSkillsHandler creates a new skills handler.
func NewSkillsHandler(deps SkillsDependencies) *SkillsHandler {
	return &SkillsHandler{deps: deps}
}

// HandleTrending handles GET /skills/trending?limit=N. A missing limit
// uses the default; larger limits are capped.
func (h *SkillsHandler) HandleTrending(w http.ResponseWriter, r *http.Request) {
	const op = "api.skills_trending"
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("limit: %w", err)))
			return
		}
		limit = n
	}
	out, err := h.deps.GetTrending(r.Context(), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCategories handles GET /skills/categories.
func (h *SkillsHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	const op = "api.skills_categories"
	out, err := h.deps.GetCategorySummary(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSuggestions handles GET /skills/suggestions?q=term.
func (h *SkillsHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.skills_suggestions"
	term := r.URL.Query().Get("q")
	if term == "" {
		term = r.URL.Query().Get("query")
	}
	out, err := h.deps.GetSuggestions(r.Context(), term)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePopular handles GET /skills/popular.
func (h *SkillsHandler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	const op = "api.skills_popular"
	out, err := h.deps.GetPopularSearches(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
