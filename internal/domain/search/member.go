package search

import (
	"sort"
	"strconv"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/textmatch"
)

// ListingMatch is one matching listing together with its owner's public
// profile. A member with three matching listings yields three rows.
type ListingMatch struct {
	// ID is memberID:listingID, unique within one result set.
	ID      string               `json:"id"`
	Listing model.SkillListing   `json:"skill"`
	Member  model.MemberSnapshot `json:"user"`
	// TotalUserSkills counts this member's listings that matched the query.
	TotalUserSkills int `json:"totalUserSkills"`
	// ListingCount counts all of this member's listings.
	ListingCount int `json:"listingCount"`
	Relevance    int `json:"relevance"`
}

// memberHitRelevance scores a listing kept only because the member's name or
// bio matched.
const memberHitRelevance = 1

// SearchMembers fans active members out into one row per matching listing
// and ranks the rows. Listing names are never checked against the catalog.
func SearchMembers(members []model.Member, q query.SearchQuery) []ListingMatch {
	term := textmatch.NewTerm(q.Query)
	out := make([]ListingMatch, 0, len(members))
	for i := range members {
		out = appendMemberRows(out, &members[i], q, term)
	}
	sortListings(out, q.SortBy)
	return out
}

func appendMemberRows(out []ListingMatch, m *model.Member, q query.SearchQuery, term textmatch.Term) []ListingMatch {
	if !memberMatches(m, q) || len(m.Skills) == 0 {
		return out
	}
	memberHit := !term.Empty() && (term.In(m.Name) || term.In(m.Bio))

	first := len(out)
	snap := m.Snapshot()
	seen := make(map[string]struct{}, len(m.Skills))
	for idx := range m.Skills {
		l := &m.Skills[idx]
		if !listingMatches(l, q, term, memberHit) {
			continue
		}
		rel := term.Score(listingDocument(l))
		if rel == 0 && memberHit {
			rel = memberHitRelevance
		}
		out = append(out, ListingMatch{
			ID:           compositeID(m.ID, l.ID, idx, seen),
			Listing:      *l,
			Member:       snap,
			ListingCount: len(m.Skills),
			Relevance:    rel,
		})
	}

	matched := len(out) - first
	for i := first; i < len(out); i++ {
		out[i].TotalUserSkills = matched
	}
	return out
}

// compositeID keeps ids distinct when listing ids are empty or repeated.
func compositeID(memberID, listingID string, idx int, seen map[string]struct{}) string {
	id := memberID + ":" + listingID
	if listingID == "" {
		id = memberID + ":" + strconv.Itoa(idx)
	}
	if _, dup := seen[id]; dup {
		id += "#" + strconv.Itoa(idx)
	}
	seen[id] = struct{}{}
	return id
}

func memberMatches(m *model.Member, q query.SearchQuery) bool {
	if !m.IsActive {
		return false
	}
	if m.Stats.Rating < q.MinRating {
		return false
	}
	if q.Location != "" &&
		!textmatch.Contains(m.Location.City, q.Location) &&
		!textmatch.Contains(m.Location.Country, q.Location) &&
		!textmatch.Contains(m.Location.City+", "+m.Location.Country, q.Location) {
		return false
	}
	return true
}

func listingDocument(l *model.SkillListing) textmatch.Document {
	return textmatch.Document{
		Name:        l.Name,
		Description: l.Description,
		Category:    string(l.Category),
		Tags:        l.Tags,
	}
}

func listingMatches(l *model.SkillListing, q query.SearchQuery, term textmatch.Term, memberHit bool) bool {
	if q.Category != "" && l.Category != q.Category {
		return false
	}
	if !q.Levels.Accepts(l.Level) {
		return false
	}
	switch q.Intent {
	case query.IntentTeaching:
		if !l.IsTeaching {
			return false
		}
	case query.IntentLearning:
		if !l.IsLearning {
			return false
		}
	}
	if term.Empty() || memberHit {
		return true
	}
	return term.In(l.Name) || term.In(l.Description) || term.InAny(l.Tags)
}

// sortListings applies the member-side comparator for sortBy, ending with
// composite id asc.
func sortListings(rows []ListingMatch, sortBy query.SortBy) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		as, bs := a.Member.Stats, b.Member.Stats
		switch sortBy {
		case query.SortRating:
			if as.Rating != bs.Rating {
				return as.Rating > bs.Rating
			}
			if as.TotalSessions != bs.TotalSessions {
				return as.TotalSessions > bs.TotalSessions
			}
		case query.SortPopularity:
			if as.TotalSessions != bs.TotalSessions {
				return as.TotalSessions > bs.TotalSessions
			}
			if as.Rating != bs.Rating {
				return as.Rating > bs.Rating
			}
		case query.SortExperience:
			if as.TotalSessions != bs.TotalSessions {
				return as.TotalSessions > bs.TotalSessions
			}
			if a.Listing.YearsOfExperience != b.Listing.YearsOfExperience {
				return a.Listing.YearsOfExperience > b.Listing.YearsOfExperience
			}
			if as.Rating != bs.Rating {
				return as.Rating > bs.Rating
			}
		case query.SortRecent:
			if !a.Member.CreatedAt.Equal(b.Member.CreatedAt) {
				return a.Member.CreatedAt.After(b.Member.CreatedAt)
			}
		default:
			if a.Relevance != b.Relevance {
				return a.Relevance > b.Relevance
			}
			if as.TotalSessions != bs.TotalSessions {
				return as.TotalSessions > bs.TotalSessions
			}
		}
		return a.ID < b.ID
	})
}
