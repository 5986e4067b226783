package service

import "errors"

var (
	// ErrNotStarted is returned when listing events arrive before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrQueueFull is returned when the refresh queue rejects an event.
	ErrQueueFull = errors.New("listing event queue full")
)
