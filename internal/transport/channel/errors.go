package channel

import "errors"

// ErrClosed is returned when sending on a closed transport.
var ErrClosed = errors.New("channel: transport closed")
