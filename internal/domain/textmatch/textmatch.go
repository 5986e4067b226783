// Package textmatch implements the case-insensitive substring matching and
// relevance scoring shared by the search and insight stages.
package textmatch

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
)

// cases.Caser is stateful, so each goroutine borrows its own.
var folders = sync.Pool{New: func() any { c := cases.Fold(); return &c }}

// Fold returns the Unicode case-folded form of s.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	c := folders.Get().(*cases.Caser)
	out := c.String(s)
	folders.Put(c)
	return out
}

// Term is a folded search term with its tokens.
type Term struct {
	Folded string
	Tokens []string
}

// NewTerm folds and tokenizes raw. An empty Term matches everything.
func NewTerm(raw string) Term {
	folded := Fold(strings.TrimSpace(raw))
	return Term{Folded: folded, Tokens: tokenize(folded)}
}

// Empty reports whether the term has no text.
func (t Term) Empty() bool { return t.Folded == "" }

// In reports whether the term is a substring of field.
func (t Term) In(field string) bool {
	return t.Empty() || strings.Contains(Fold(field), t.Folded)
}

// InAny reports whether the term is a substring of any field.
func (t Term) InAny(fields []string) bool {
	if t.Empty() {
		return true
	}
	for _, f := range fields {
		if strings.Contains(Fold(f), t.Folded) {
			return true
		}
	}
	return false
}

// Contains is a folded substring test.
func Contains(field, sub string) bool {
	return strings.Contains(Fold(field), Fold(sub))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '+' && r != '#'
	})
}

// Weights of the relevance formula.
const (
	WeightNameExact    = 100
	WeightNamePrefix   = 60
	WeightNameContains = 40
	WeightTokenName    = 10
	WeightTokenTagEq   = 8
	WeightTokenTag     = 4
	WeightTokenCat     = 3
	WeightTokenDesc    = 2
)

// Document is the text surface of a catalog skill or a listing.
type Document struct {
	Name        string
	Description string
	Category    string
	Tags        []string
	Keywords    []string
}

// Score rates how well doc matches t. The whole term scores against the name
// once; each token then scores against every field it appears in.
func (t Term) Score(doc Document) int {
	if t.Empty() {
		return 0
	}
	name := Fold(doc.Name)
	score := 0
	switch {
	case name == t.Folded:
		score += WeightNameExact
	case strings.HasPrefix(name, t.Folded):
		score += WeightNamePrefix
	case strings.Contains(name, t.Folded):
		score += WeightNameContains
	}

	desc := Fold(doc.Description)
	cat := Fold(doc.Category)
	labels := make([]string, 0, len(doc.Tags)+len(doc.Keywords))
	for _, l := range doc.Tags {
		labels = append(labels, Fold(l))
	}
	for _, l := range doc.Keywords {
		labels = append(labels, Fold(l))
	}

	for _, tok := range t.Tokens {
		if strings.Contains(name, tok) {
			score += WeightTokenName
		}
		for _, l := range labels {
			if l == tok {
				score += WeightTokenTagEq
			} else if strings.Contains(l, tok) {
				score += WeightTokenTag
			}
		}
		if strings.Contains(cat, tok) {
			score += WeightTokenCat
		}
		if strings.Contains(desc, tok) {
			score += WeightTokenDesc
		}
	}
	return score
}
