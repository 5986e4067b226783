package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/skillswap/internal/domain/query"
)

const maxSearchBody = 64 << 10

// SearchHandler handles GET and POST /search.
type SearchHandler struct {
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

// HandleSearch reads the filter from the query string (GET) or a JSON
// object body (POST) and returns both result channels.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search"

	var raw query.RawFilter
	if r.Method == http.MethodPost {
		decoded, err := decodeFilterBody(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		raw = decoded
	} else {
		raw = filterFromQuery(r)
	}

	res, err := h.deps.Search(r.Context(), raw)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// filterFromQuery keeps repeated parameters as lists so set-valued
// filters such as level=beginner&level=expert survive.
func filterFromQuery(r *http.Request) query.RawFilter {
	values := r.URL.Query()
	raw := make(query.RawFilter, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			raw[k] = vs[0]
			continue
		}
		raw[k] = vs
	}
	return raw
}

func decodeFilterBody(body io.Reader) (query.RawFilter, error) {
	dec := json.NewDecoder(io.LimitReader(body, maxSearchBody))
	dec.UseNumber()
	raw := query.RawFilter{}
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return raw, nil
		}
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	return raw, nil
}
