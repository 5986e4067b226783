package queue

import "errors"

// ErrFull is returned by callers that surface a rejected Enqueue as an error.
var ErrFull = errors.New("queue full or closed")
