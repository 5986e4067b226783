package search

import (
	"errors"
	"fmt"
)

// ErrStore is the kind behind every store read failure during a search.
var ErrStore = errors.New("store read failed")

// Search stages, used as StoreError.Stage and as metric labels.
const (
	StageCatalog = "catalog"
	StageMembers = "members"
)

// StoreError reports which stage failed to read its store. A StoreError
// always fails the whole search.
type StoreError struct {
	Stage string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStore) hold for any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }
