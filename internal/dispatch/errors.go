package dispatch

import (
	"fmt"

	"github.com/voxbot-dev/voxbot/internal/permission"
)

// PermissionError is the user-facing rejection for a command invoked
// below its minimum level. It is a UserError subtype: surfaced as a
// plain-text reply, never logged as a system fault.
type PermissionError struct {
	Command  string
	Required permission.Level

	// Hint is appended when an elevation-request command is
	// registered.
	Hint string
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("/%s requires %s access", e.Command, e.Required)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// RateLimitError is the user-facing rejection for a quota breach.
type RateLimitError struct {
	Command string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("slow down - /%s is rate limited, try again later", e.Command)
}
