package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ListingEventKind says what happened to a listing.
type ListingEventKind string

const (
	ListingAdded   ListingEventKind = "added"
	ListingUpdated ListingEventKind = "updated"
	ListingRemoved ListingEventKind = "removed"
)

// Valid reports whether k is a known kind.
func (k ListingEventKind) Valid() bool {
	switch k {
	case ListingAdded, ListingUpdated, ListingRemoved:
		return true
	default:
		return false
	}
}

// ListingEvent is published by profile management whenever a member adds,
// edits or removes a listing. It carries only the skill name; the catalog
// stats for that name are recomputed from the member store.
type ListingEvent struct {
	EventID   string           `json:"event_id"`
	MemberID  string           `json:"member_id"`
	SkillName string           `json:"skill_name"`
	Kind      ListingEventKind `json:"kind"`
	TS        time.Time        `json:"ts"`
}

// ErrInvalidEvent marks a listing event that can never be processed.
var ErrInvalidEvent = errors.New("invalid listing event")

// Validate checks the fields the refresher relies on.
func (e *ListingEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	case strings.TrimSpace(e.SkillName) == "":
		return fmt.Errorf("%w: skill_name is required", ErrInvalidEvent)
	case !e.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}
