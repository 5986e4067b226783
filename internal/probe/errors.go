package probe

import "errors"

var (
	// ErrUnhealthy is returned when the service health check fails.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrInconsistent wraps every pagination violation found by a walk.
	ErrInconsistent = errors.New("pagination inconsistent")
	// ErrUnexpectedStatus is returned for a non-2xx search response.
	ErrUnexpectedStatus = errors.New("unexpected status")
)
