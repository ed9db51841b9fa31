// Package echo provides text echo commands, including a shout command
// that asks for confirmation before replying.
package echo

import (
	"strings"

	"github.com/voxbot-dev/voxbot/internal/plugin"
)

// Plugin echoes text back. /shout asks for confirmation first and
// resumes through a stored continuation.
type Plugin struct{}

// Factory returns the plugin factory.
func Factory() plugin.Factory {
	return plugin.Factory{ID: "echo", New: func() plugin.Plugin { return &Plugin{} }}
}

func (p *Plugin) Manifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:        "echo",
		DisplayName: "Echo",
		Description: "Repeats what you say",
		Version:     "1.0.0",
	}
}

func (p *Plugin) Commands() []*plugin.Command {
	return []*plugin.Command{
		{
			Name:        "echo",
			Description: "repeat the given text",
			Handler:     p.echo,
		},
		{
			Name:        "shout",
			Description: "repeat the given text, loudly, after confirmation",
			Handler:     p.shout,
		},
	}
}

func (p *Plugin) Interactions() []*plugin.Interaction {
	return []*plugin.Interaction{
		{Name: "confirm", Handler: p.confirm},
	}
}

func (p *Plugin) OnLoad(ctx *plugin.Context) error   { return nil }
func (p *Plugin) OnUnload(ctx *plugin.Context) error { return nil }

func (p *Plugin) echo(inv *plugin.Invocation) (plugin.Result, error) {
	if inv.Arg == "" {
		return plugin.None(), plugin.UserErrorf("usage: /echo <text>")
	}
	return plugin.Reply(inv.Arg), nil
}

func (p *Plugin) shout(inv *plugin.Invocation) (plugin.Result, error) {
	if inv.Arg == "" {
		return plugin.None(), plugin.UserErrorf("usage: /shout <text>")
	}
	return plugin.Continue("really shout? (yes/no)", "confirm", []byte(inv.Arg)), nil
}

func (p *Plugin) confirm(res *plugin.Resume) (plugin.Result, error) {
	switch strings.ToLower(strings.TrimSpace(res.Message.Body)) {
	case "yes", "y":
		return plugin.Reply(strings.ToUpper(string(res.State)) + "!"), nil
	default:
		return plugin.React(false), nil
	}
}
