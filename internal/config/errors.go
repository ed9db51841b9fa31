package config

import "errors"

// Validation errors.
var (
	// ErrUnknownTransport - transport.mode is not a supported mode.
	ErrUnknownTransport = errors.New("unknown transport mode")

	// ErrMissingURL - ws transport configured without a gateway URL.
	ErrMissingURL = errors.New("gateway url required")

	// ErrBadLogLevel - logging.level is not debug, info, warn or error.
	ErrBadLogLevel = errors.New("invalid log level")

	// ErrBadLogFormat - logging.format is not text or json.
	ErrBadLogFormat = errors.New("invalid log format")
)
