package ws

import "errors"

// Transport errors.
var (
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("ws: transport closed")

	// ErrBufferFull indicates the outbound buffer is full and the
	// frame was dropped.
	ErrBufferFull = errors.New("ws: send buffer full")
)
