package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/skillswap/internal/domain/model"
)

// Default normalization bounds.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
	MaxRating       = 5.0
)

// RawFilter is the caller's filter input as decoded from a query string or
// JSON body. Values may be absent, nil, strings, string slices, []any, numbers
// or booleans.
type RawFilter map[string]any

// Canonical field names used in ValidationError.Field.
const (
	FieldQuery     = "query"
	FieldCategory  = "category"
	FieldLevel     = "level"
	FieldType      = "type"
	FieldLocation  = "location"
	FieldMinRating = "minRating"
	FieldSortBy    = "sortBy"
	FieldPage      = "page"
	FieldPageSize  = "pageSize"
)

var aliases = map[string][]string{
	FieldQuery:     {"query", "q", "search"},
	FieldCategory:  {"category"},
	FieldLevel:     {"level", "levels"},
	FieldType:      {"type", "intent"},
	FieldLocation:  {"location"},
	FieldMinRating: {"minRating", "rating"},
	FieldSortBy:    {"sortBy", "sort"},
	FieldPage:      {"page"},
	FieldPageSize:  {"pageSize", "limit"},
}

// Normalizer validates raw filters. It holds only configuration and is safe
// for concurrent use.
type Normalizer struct {
	defaultPageSize int
	maxPageSize     int
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithDefaultPageSize sets the page size used when none is given.
func WithDefaultPageSize(n int) Option {
	return func(z *Normalizer) {
		if n > 0 {
			z.defaultPageSize = n
		}
	}
}

// WithMaxPageSize lowers the page size ceiling. Values above MaxPageSize are
// ignored.
func WithMaxPageSize(n int) Option {
	return func(z *Normalizer) {
		if n > 0 && n <= MaxPageSize {
			z.maxPageSize = n
		}
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	z := &Normalizer{
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
	}
	for _, opt := range opts {
		opt(z)
	}
	if z.defaultPageSize > z.maxPageSize {
		z.defaultPageSize = z.maxPageSize
	}
	return z
}

// Normalize is a shorthand for NewNormalizer().Normalize.
func Normalize(raw RawFilter, opts ...Option) (SearchQuery, error) {
	return NewNormalizer(opts...).Normalize(raw)
}

// Normalize turns raw into a SearchQuery or returns a *ValidationError.
// It has no side effects.
func (z *Normalizer) Normalize(raw RawFilter) (SearchQuery, error) {
	q := SearchQuery{
		Intent:   IntentBoth,
		SortBy:   SortRelevance,
		Page:     1,
		PageSize: z.defaultPageSize,
	}
	var err error

	if q.Query, err = stringField(raw, FieldQuery); err != nil {
		return SearchQuery{}, err
	}
	if q.Location, err = stringField(raw, FieldLocation); err != nil {
		return SearchQuery{}, err
	}
	if q.Category, err = categoryField(raw); err != nil {
		return SearchQuery{}, err
	}
	if q.Levels, err = levelField(raw); err != nil {
		return SearchQuery{}, err
	}
	if q.Intent, err = intentField(raw); err != nil {
		return SearchQuery{}, err
	}

	sortBy, err := stringField(raw, FieldSortBy)
	if err != nil {
		return SearchQuery{}, err
	}
	q.SortBy = parseSort(sortBy)

	if v, ok, err := numberField(raw, FieldMinRating); err != nil {
		return SearchQuery{}, err
	} else if ok {
		q.MinRating = math.Max(0, math.Min(MaxRating, v))
	}

	if v, ok, err := numberField(raw, FieldPage); err != nil {
		return SearchQuery{}, err
	} else if ok && v >= 1 {
		q.Page = clampInt(v, 1, math.MaxInt32)
	}

	if v, ok, err := numberField(raw, FieldPageSize); err != nil {
		return SearchQuery{}, err
	} else if ok {
		q.PageSize = clampInt(v, 1, z.maxPageSize)
	}

	return q, nil
}

func parseSort(s string) SortBy {
	switch SortBy(strings.ToLower(s)) {
	case SortRating:
		return SortRating
	case SortPopularity:
		return SortPopularity
	case SortRecent:
		return SortRecent
	case SortExperience:
		return SortExperience
	default:
		return SortRelevance
	}
}

func categoryField(raw RawFilter) (model.Category, error) {
	s, err := stringField(raw, FieldCategory)
	if err != nil || s == "" || strings.EqualFold(s, "all") {
		return "", err
	}
	c, ok := model.ParseCategory(s)
	if !ok {
		return "", invalid(FieldCategory, "unknown category %q", s)
	}
	return c, nil
}

func levelField(raw RawFilter) (LevelSet, error) {
	values, err := stringsField(raw, FieldLevel)
	if err != nil {
		return 0, err
	}
	var set LevelSet
	for _, v := range values {
		if strings.EqualFold(v, "all") {
			continue
		}
		l, ok := model.ParseLevel(v)
		if !ok {
			return 0, invalid(FieldLevel, "unknown level %q", v)
		}
		set |= NewLevelSet(l)
	}
	return set, nil
}

func intentField(raw RawFilter) (Intent, error) {
	s, err := stringField(raw, FieldType)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(s) {
	case "", "both", "all":
		return IntentBoth, nil
	case "teaching", "teach":
		return IntentTeaching, nil
	case "learning", "learn":
		return IntentLearning, nil
	default:
		return "", invalid(FieldType, "must be one of teaching, learning, both; got %q", s)
	}
}

// lookup returns the first present alias of field.
func lookup(raw RawFilter, field string) (any, bool) {
	for _, k := range aliases[field] {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// stringField reads a scalar string. A single-element array is unwrapped.
func stringField(raw RawFilter, field string) (string, error) {
	v, ok := lookup(raw, field)
	if !ok {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case []string:
		return singleString(field, len(t), func() any { return t[0] })
	case []any:
		return singleString(field, len(t), func() any { return t[0] })
	case json.Number:
		return t.String(), nil
	case float64, float32, int, int32, int64, bool:
		return strings.TrimSpace(fmt.Sprint(t)), nil
	default:
		return "", invalid(field, "unsupported value type %T", v)
	}
}

func singleString(field string, n int, first func() any) (string, error) {
	switch n {
	case 0:
		return "", nil
	case 1:
		s, ok := first().(string)
		if !ok {
			return "", invalid(field, "expected a string")
		}
		return strings.TrimSpace(s), nil
	default:
		return "", invalid(field, "expected a single value, got %d", n)
	}
}

// stringsField reads a set-valued filter. Scalars become singletons and
// comma separated strings are split.
func stringsField(raw RawFilter, field string) ([]string, error) {
	v, ok := lookup(raw, field)
	if !ok {
		return nil, nil
	}
	var items []string
	switch t := v.(type) {
	case string:
		items = []string{t}
	case []string:
		items = t
	case []any:
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, invalid(field, "expected strings, got %T", e)
			}
			items = append(items, s)
		}
	default:
		return nil, invalid(field, "unsupported value type %T", v)
	}

	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out, nil
}

// numberField reads a number. Empty strings count as absent.
func numberField(raw RawFilter, field string) (float64, bool, error) {
	v, ok := lookup(raw, field)
	if !ok {
		return 0, false, nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false, invalid(field, "not a number: %q", t.String())
		}
		f = parsed
	case string, []string, []any:
		s, err := stringField(raw, field)
		if err != nil {
			return 0, false, err
		}
		if s == "" {
			return 0, false, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, invalid(field, "not a number: %q", s)
		}
		f = parsed
	default:
		return 0, false, invalid(field, "unsupported value type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, invalid(field, "not a finite number")
	}
	return f, true, nil
}

func clampInt(v float64, lo, hi int) int {
	if v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return int(v)
}
