package app

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning - Run called twice.
var ErrAlreadyRunning = errors.New("application already running")

// InitError wraps a component initialization failure.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
