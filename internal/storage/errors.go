package storage

import "errors"

// ErrClosed is returned when a released store handle is used.
var ErrClosed = errors.New("storage: store handle released")
