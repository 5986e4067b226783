package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("skill not found")
	ErrInvalidRecord = errors.New("invalid record")
	ErrDuplicateName = errors.New("skill name already in catalog")
	ErrStore         = errors.New("repository failure")
)
