// Package dispatch routes inbound messages to command and interaction
// handlers and normalizes their results into outbound actions.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/voxbot-dev/voxbot/internal/interaction"
	"github.com/voxbot-dev/voxbot/internal/message"
	"github.com/voxbot-dev/voxbot/internal/permission"
	"github.com/voxbot-dev/voxbot/internal/plugin"
	"github.com/voxbot-dev/voxbot/internal/ratelimit"
	"github.com/voxbot-dev/voxbot/internal/transport"
)

// Reaction emojis for boolean acknowledgement results.
const (
	ackPositive = "\U0001F44D" // thumbs up
	ackNegative = "\U0001F44E" // thumbs down
)

// ElevateCommand is the well-known elevation-request command name.
// When a loaded plugin provides it, permission errors hint at it.
const ElevateCommand = "elevate"

// Config configures a Dispatcher.
type Config struct {
	// Prefix is the command marker. Default "/".
	Prefix string

	// RecoverFromPanic converts handler panics into plugin faults
	// instead of crashing the process.
	RecoverFromPanic bool

	// UnknownCommandReply enables the "unknown command" reply; when
	// false, unknown commands fall through to passive observers.
	UnknownCommandReply bool
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:              "/",
		RecoverFromPanic:    true,
		UnknownCommandReply: true,
	}
}

// Dispatcher is the message-handling state machine. It owns the
// process-scoped gates (permission resolver, rate limiter, pending
// interactions) and consults the registry for handlers; test cases
// construct isolated instances.
type Dispatcher struct {
	registry *plugin.Registry
	resolver *permission.Resolver
	limiter  *ratelimit.Limiter
	pending  *interaction.Store
	sender   transport.Sender

	config Config
	log    *slog.Logger
}

// New creates a dispatcher.
func New(registry *plugin.Registry, resolver *permission.Resolver, limiter *ratelimit.Limiter, pending *interaction.Store, sender transport.Sender, config Config, log *slog.Logger) *Dispatcher {
	if config.Prefix == "" {
		config.Prefix = "/"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		resolver: resolver,
		limiter:  limiter,
		pending:  pending,
		sender:   sender,
		config:   config,
		log:      log,
	}
}

// HandleMessage runs one inbound message through the state machine.
// Dispatch for different conversation keys is independent; for the
// same key the atomic interaction take is the sole synchronization
// point, so two messages can never both observe one continuation.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg message.Inbound) {
	level := d.resolver.Effective(msg.Sender, msg.Chat)

	// A pending continuation consumes the message whole; the
	// originating command already cleared the permission gate.
	if p := d.pending.Take(msg.Key()); p != nil {
		d.resume(ctx, msg, level, p)
		return
	}

	name, arg, ok := d.parseCommand(msg.Body)
	if !ok {
		d.observe(ctx, msg, level)
		return
	}

	cmd, found := d.registry.Command(name)
	if !found {
		if d.config.UnknownCommandReply {
			d.replyText(msg, fmt.Sprintf("unknown command /%s", name))
		}
		return
	}

	if level < cmd.MinLevel {
		perr := &PermissionError{Command: cmd.Name, Required: cmd.MinLevel}
		if _, ok := d.registry.Command(ElevateCommand); ok && cmd.Name != ElevateCommand {
			perr.Hint = "use /" + ElevateCommand + " to request access"
		}
		d.replyText(msg, perr.Error())
		return
	}

	entry, _ := d.registry.Entry(cmd.PluginID())
	if d.limited(msg.Sender, cmd, entry) {
		d.replyText(msg, (&RateLimitError{Command: cmd.Name}).Error())
		return
	}

	inv := d.invocation(ctx, msg, level, arg, entry)
	result, err := d.execute(cmd.Name, func() (plugin.Result, error) {
		return cmd.Handler(inv)
	})

	// Only successfully dispatched commands consume quota; a
	// rejected attempt never does.
	weight := cmd.Weight
	if weight <= 0 {
		weight = 1
	}
	d.limiter.Record(msg.Sender, weight, "cmd:"+strings.ToLower(cmd.Name), "plugin:"+cmd.PluginID())

	d.finish(msg, cmd.PluginID(), result, err)
}

// resume routes a message into a stored continuation.
func (d *Dispatcher) resume(ctx context.Context, msg message.Inbound, level permission.Level, p *interaction.Pending) {
	in, ok := d.registry.Interaction(p.PluginID, p.Name)
	if !ok {
		// The plugin went away between set and resume.
		d.log.Warn("pending interaction has no handler",
			"plugin", p.PluginID, "interaction", p.Name)
		d.replyText(msg, "that conversation is no longer available")
		return
	}

	entry, _ := d.registry.Entry(p.PluginID)
	res := &plugin.Resume{
		Invocation: *d.invocation(ctx, msg, level, msg.Body, entry),
		State:      p.State,
	}

	result, err := d.execute(p.PluginID+"/"+p.Name, func() (plugin.Result, error) {
		return in.Handler(res)
	})
	d.finish(msg, p.PluginID, result, err)
}

// observe hands a non-command message to passive observer hooks.
func (d *Dispatcher) observe(ctx context.Context, msg message.Inbound, level permission.Level) {
	for _, obs := range d.registry.Observers() {
		p, _ := obs.(plugin.Plugin)
		var entry *plugin.Entry
		if p != nil {
			entry, _ = d.registry.Entry(p.Manifest().Name)
		}
		inv := d.invocation(ctx, msg, level, msg.Body, entry)
		func() {
			if d.config.RecoverFromPanic {
				defer func() {
					if r := recover(); r != nil {
						d.log.Error("observer panic", "err", r)
					}
				}()
			}
			obs.Observe(inv)
		}()
	}
}

// invocation builds the execution context for a handler.
func (d *Dispatcher) invocation(ctx context.Context, msg message.Inbound, level permission.Level, arg string, entry *plugin.Entry) *plugin.Invocation {
	inv := &plugin.Invocation{
		Ctx:     ctx,
		Message: msg,
		Level:   level,
		Arg:     arg,
		Sender:  d.sender,
		Log:     d.log,
	}
	if entry != nil {
		inv.Config = entry.Config
		inv.Store = entry.Store
		inv.Log = d.log.With("plugin", entry.Manifest.Name)
	}
	return inv
}

// limited evaluates the command's quotas and, when configured, the
// owning plugin's quotas.
func (d *Dispatcher) limited(userID string, cmd *plugin.Command, entry *plugin.Entry) bool {
	if len(cmd.Quotas) > 0 &&
		d.limiter.Limited(userID, cmd.Quotas, "cmd:"+strings.ToLower(cmd.Name)) {
		return true
	}
	if entry != nil && len(entry.Manifest.Quotas) > 0 &&
		d.limiter.Limited(userID, entry.Manifest.Quotas, "plugin:"+entry.Manifest.Name) {
		return true
	}
	return false
}

// execute invokes a handler with optional panic recovery.
func (d *Dispatcher) execute(name string, fn func() (plugin.Result, error)) (result plugin.Result, err error) {
	if d.config.RecoverFromPanic {
		defer func() {
			if r := recover(); r != nil {
				stack := make([]byte, 4096)
				n := runtime.Stack(stack, false)
				d.log.Error("handler panic", "handler", name, "panic", r, "stack", string(stack[:n]))
				result = plugin.None()
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
	}
	return fn()
}

// finish normalizes a handler outcome into exactly one outbound
// action: reply, reaction, stored continuation with prompt, silence,
// or an error reply.
func (d *Dispatcher) finish(msg message.Inbound, pluginID string, result plugin.Result, err error) {
	if err != nil {
		var uerr *plugin.UserError
		if errors.As(err, &uerr) {
			d.replyText(msg, uerr.Msg)
			return
		}
		// Unexpected handler failure: full detail server-side, a
		// debug representation to the user.
		d.log.Error("plugin fault", "plugin", pluginID, "err", err)
		d.replyText(msg, fmt.Sprintf("command failed: %v", err))
		return
	}

	switch result.Kind {
	case plugin.ResultReply:
		d.replyText(msg, result.Text)
	case plugin.ResultReact:
		emoji := ackPositive
		if !result.Ok {
			emoji = ackNegative
		}
		if serr := d.sender.SendReaction(msg.Ref(), emoji); serr != nil {
			d.log.Error("send reaction failed", "err", serr)
		}
	case plugin.ResultContinue:
		d.pending.Set(msg.Key(), interaction.Pending{
			PluginID: pluginID,
			Name:     result.Interaction,
			State:    result.State,
		})
		if result.Text != "" {
			d.replyText(msg, result.Text)
		}
	case plugin.ResultNone:
		// No visible action, intentionally.
	}
}

// parseCommand splits "/name rest" into a lowercase name and the raw
// trailing text. Returns ok=false for non-command bodies.
func (d *Dispatcher) parseCommand(body string) (name, arg string, ok bool) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, d.config.Prefix) {
		return "", "", false
	}
	rest := body[len(d.config.Prefix):]
	if rest == "" {
		return "", "", false
	}

	if i := strings.IndexAny(rest, " \t\n"); i >= 0 {
		name, arg = rest[:i], strings.TrimSpace(rest[i+1:])
	} else {
		name = rest
	}
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), arg, true
}

// replyText sends a text reply to the message's chat.
func (d *Dispatcher) replyText(msg message.Inbound, text string) {
	if err := d.sender.SendText(msg.Chat, text); err != nil {
		d.log.Error("send reply failed", "chat", msg.Chat, "err", err)
	}
}
