package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxbot-dev/voxbot/internal/message"
	"github.com/voxbot-dev/voxbot/internal/permission"
	"github.com/voxbot-dev/voxbot/internal/ratelimit"
	"github.com/voxbot-dev/voxbot/internal/storage"
	"github.com/voxbot-dev/voxbot/internal/transport"
)

// Plugin is a self-contained bundle of commands, interaction handlers,
// and lifecycle hooks, loaded as a unit. Implementations are
// constructed by a Factory and exclusively owned by the Registry.
type Plugin interface {
	// Manifest describes the plugin's identity, dependencies,
	// storage needs, and configuration schema.
	Manifest() *Manifest

	// Commands returns the commands the plugin exposes.
	Commands() []*Command

	// Interactions returns the resumable conversation branches the
	// plugin's commands can enter.
	Interactions() []*Interaction

	// OnLoad fires once the plugin is registered. The context carries
	// the validated configuration and, when declared, the storage
	// handle (opened before this hook runs).
	OnLoad(ctx *Context) error

	// OnUnload fires before removal or process shutdown. Errors are
	// logged, not propagated.
	OnUnload(ctx *Context) error
}

// Observer is implemented by plugins that want to see every inbound
// message regardless of command dispatch (e.g. auto-reaction plugins).
type Observer interface {
	Observe(inv *Invocation)
}

// Factory maps a plugin id to its constructor. The ordered factory
// list is the explicit manifest of available plugins; there is no
// filesystem or reflection-based discovery for native plugins.
type Factory struct {
	ID  string
	New func() Plugin
}

// Command is a named, permission-gated, rate-limited action invocable
// via "/<name>" text.
type Command struct {
	// Name is unique across the whole registry; the comparison is
	// case-insensitive.
	Name        string
	Description string

	// MinLevel is the minimum permission level required to invoke.
	MinLevel permission.Level

	// Hidden excludes the command from default help listings.
	Hidden bool

	// Quotas are the command's sliding-window rate limits, evaluated
	// as a logical AND of "not limited".
	Quotas []ratelimit.Quota

	// Weight is the rate-limit points a successful dispatch consumes.
	// Zero means 1.
	Weight int

	Handler func(inv *Invocation) (Result, error)

	// owner is set at registration for error messages and resource
	// scoping.
	owner *Entry
}

// PluginID returns the owning plugin's id, or "" before registration.
func (c *Command) PluginID() string {
	if c.owner == nil {
		return ""
	}
	return c.owner.Manifest.Name
}

// PluginHidden reports whether the owning plugin is excluded from
// default help listings.
func (c *Command) PluginHidden() bool {
	return c.owner != nil && c.owner.Manifest.Hidden
}

// Interaction is a resumable conversation branch. Its name is
// namespaced per plugin.
type Interaction struct {
	Name    string
	Handler func(res *Resume) (Result, error)

	owner *Entry
}

// Invocation is the execution context handed to a command handler.
type Invocation struct {
	Ctx     context.Context
	Message message.Inbound

	// Level is the effective permission level, the maximum of the
	// sender's and the chat's resolved levels.
	Level permission.Level

	// Arg is the trailing text after the command name, unparsed.
	Arg string

	// Config is the plugin's validated configuration.
	Config map[string]any

	// Store is the plugin's storage handle; nil unless the manifest
	// declares UsesStorage.
	Store *storage.Store

	// Sender allows side-channel sends; those are the handler's own
	// responsibility and do not count as the primary reply.
	Sender transport.Sender

	Log *slog.Logger
}

// Resume is the context handed to an interaction handler when a
// pending continuation is consumed. Arg carries the full message body.
type Resume struct {
	Invocation

	// State is the opaque payload stored with the continuation.
	State []byte
}

// Context carries a plugin's runtime resources into lifecycle hooks.
type Context struct {
	Log    *slog.Logger
	Config map[string]any
	Store  *storage.Store

	// Registry and Loader give management plugins access to the
	// runtime; most plugins ignore them.
	Registry *Registry
	Loader   *Loader
}

// UserError is an expected, user-caused failure (bad arguments,
// missing preconditions). The dispatcher surfaces it verbatim as a
// plain-text reply and never logs it as a system fault.
type UserError struct {
	Msg string
}

func (e *UserError) Error() string {
	return e.Msg
}

// UserErrorf builds a UserError.
func UserErrorf(format string, args ...any) error {
	return &UserError{Msg: fmt.Sprintf(format, args...)}
}
