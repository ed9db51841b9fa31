// Package help lists available commands from the live registry.
package help

import (
	"fmt"
	"strings"

	"github.com/voxbot-dev/voxbot/internal/plugin"
)

// Plugin answers /help with the command catalog. Hidden commands,
// commands of hidden plugins, and commands above the caller's
// permission level are omitted from the listing but still resolvable
// by name.
type Plugin struct {
	registry *plugin.Registry
}

// Factory returns the plugin factory.
func Factory() plugin.Factory {
	return plugin.Factory{ID: "help", New: func() plugin.Plugin { return &Plugin{} }}
}

func (p *Plugin) Manifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:        "help",
		DisplayName: "Help",
		Description: "Lists available commands",
		Version:     "1.0.0",
	}
}

func (p *Plugin) Commands() []*plugin.Command {
	return []*plugin.Command{
		{
			Name:        "help",
			Description: "list commands, or describe one: /help <command>",
			Handler:     p.help,
		},
	}
}

func (p *Plugin) Interactions() []*plugin.Interaction { return nil }

func (p *Plugin) OnLoad(ctx *plugin.Context) error {
	p.registry = ctx.Registry
	return nil
}

func (p *Plugin) OnUnload(ctx *plugin.Context) error { return nil }

func (p *Plugin) help(inv *plugin.Invocation) (plugin.Result, error) {
	if inv.Arg != "" {
		return p.describe(inv.Arg)
	}

	var b strings.Builder
	b.WriteString("available commands:\n")
	for _, cmd := range p.registry.Commands() {
		if cmd.Hidden || cmd.PluginHidden() || cmd.MinLevel > inv.Level {
			continue
		}
		fmt.Fprintf(&b, "  /%s", cmd.Name)
		if cmd.Description != "" {
			fmt.Fprintf(&b, " - %s", cmd.Description)
		}
		b.WriteString("\n")
	}
	return plugin.Reply(strings.TrimRight(b.String(), "\n")), nil
}

func (p *Plugin) describe(name string) (plugin.Result, error) {
	name = strings.TrimPrefix(name, "/")
	cmd, ok := p.registry.Command(name)
	if !ok {
		return plugin.None(), plugin.UserErrorf("no such command /%s", strings.ToLower(name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "/%s", cmd.Name)
	if cmd.Description != "" {
		fmt.Fprintf(&b, " - %s", cmd.Description)
	}
	fmt.Fprintf(&b, "\nprovided by %s", cmd.PluginID())
	if cmd.MinLevel > 0 {
		fmt.Fprintf(&b, ", requires %s access", cmd.MinLevel)
	}
	return plugin.Reply(b.String()), nil
}
