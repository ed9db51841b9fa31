package lua

import "errors"

// Lua host errors.
var (
	// ErrStateClosed - operation on a closed Lua state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNoPluginTable - script did not declare a global plugin table.
	ErrNoPluginTable = errors.New("script declares no plugin table")

	// ErrBadHandler - a declared command or interaction has no handler
	// function.
	ErrBadHandler = errors.New("handler is not a function")

	// ErrBadLevel - min_level is not none, trusted or admin.
	ErrBadLevel = errors.New("invalid permission level")
)
