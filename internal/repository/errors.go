package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrUnavailable indicates the backing store could not be queried. Periodic
// callers skip the tick and retry on the next one.
var ErrUnavailable = errors.New("repository: data unavailable")
