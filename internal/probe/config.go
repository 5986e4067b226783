// Package probe drives a running skillswap server over HTTP: it can submit
// generated listing events and walks every page of both search channels,
// checking that pagination is consistent.
package probe

import (
	"net/url"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultPageSize = 20
	DefaultTimeout  = 10 * time.Second
	DefaultWorkers  = 4
	// maxPages stops a walk against a server whose hasMore never clears.
	maxPages = 10_000
)

// Config holds configuration for one probe run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Filter   url.Values    // Search filter; page and limit are set by the walk
	PageSize int           // limit sent with every page request
	Timeout  time.Duration // HTTP request timeout
	Events   int           // Listing events to submit before walking; 0 skips
	Skills   []string      // Skill names the generated events refer to
	Workers  int           // Concurrent event submitters
	Verbose  bool          // Log every fetched page
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Filter == nil {
		c.Filter = url.Values{}
	}
	return c
}

// Item is the part of a result row the probe inspects.
type Item struct {
	ID string `json:"id"`
}

// Page mirrors one paginated channel of a search response.
type Page struct {
	Items       []Item `json:"items"`
	TotalCount  int    `json:"totalCount"`
	CurrentPage int    `json:"currentPage"`
	PageSize    int    `json:"pageSize"`
	TotalPages  int    `json:"totalPages"`
	HasMore     bool   `json:"hasMore"`
}

// SearchResponse mirrors the search endpoint body.
type SearchResponse struct {
	Skills   Page `json:"skills"`
	Listings Page `json:"listings"`
}

// AckResponse represents the response from event submission.
type AckResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// EventStats counts event submission outcomes.
type EventStats struct {
	Submitted int
	Accepted  int
	Duplicate int
	Rejected  int
	Failed    int
}

// Report summarizes a probe run.
type Report struct {
	Events        EventStats
	Requests      int
	SkillItems    int
	ListingItems  int
	SkillTotal    int
	ListingTotal  int
	StartTime     time.Time
	Duration      time.Duration
	Inconsistency error
}
