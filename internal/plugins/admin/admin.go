// Package admin provides runtime management commands.
package admin

import (
	"fmt"
	"strings"

	"github.com/voxbot-dev/voxbot/internal/permission"
	"github.com/voxbot-dev/voxbot/internal/plugin"
)

// Plugin exposes plugin management to admins and the access-request
// command to everyone. It depends on help so that /help is always
// present when management commands are.
type Plugin struct {
	registry *plugin.Registry
	loader   *plugin.Loader
}

// Factory returns the plugin factory.
func Factory() plugin.Factory {
	return plugin.Factory{ID: "admin", New: func() plugin.Plugin { return &Plugin{} }}
}

func (p *Plugin) Manifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:         "admin",
		DisplayName:  "Admin",
		Description:  "Runtime plugin management",
		Version:      "1.0.0",
		Dependencies: []string{"help"},
	}
}

func (p *Plugin) Commands() []*plugin.Command {
	return []*plugin.Command{
		{
			Name:        "plugins",
			Description: "list loaded plugins",
			MinLevel:    permission.Admin,
			Handler:     p.plugins,
		},
		{
			Name:        "reload",
			Description: "reload all plugins, or the named ones: /reload [id ...]",
			MinLevel:    permission.Admin,
			Handler:     p.reload,
		},
		{
			Name:        "elevate",
			Description: "request elevated access",
			Handler:     p.elevate,
		},
	}
}

func (p *Plugin) Interactions() []*plugin.Interaction { return nil }

func (p *Plugin) OnLoad(ctx *plugin.Context) error {
	p.registry = ctx.Registry
	p.loader = ctx.Loader
	return nil
}

func (p *Plugin) OnUnload(ctx *plugin.Context) error { return nil }

func (p *Plugin) plugins(inv *plugin.Invocation) (plugin.Result, error) {
	entries := p.registry.Plugins()

	var b strings.Builder
	fmt.Fprintf(&b, "%d plugins loaded:\n", len(entries))
	for _, entry := range entries {
		fmt.Fprintf(&b, "  %s %s", entry.Manifest.Name, entry.Manifest.Version)
		if n := len(entry.Plugin.Commands()); n > 0 {
			fmt.Fprintf(&b, " (%d commands)", n)
		}
		b.WriteString("\n")
	}
	return plugin.Reply(strings.TrimRight(b.String(), "\n")), nil
}

func (p *Plugin) reload(inv *plugin.Invocation) (plugin.Result, error) {
	if p.loader == nil {
		return plugin.None(), plugin.UserErrorf("reload is unavailable in this deployment")
	}

	var ids []string
	if inv.Arg != "" {
		ids = strings.Fields(inv.Arg)
	}

	if err := p.loader.Reload(ids); err != nil {
		return plugin.None(), fmt.Errorf("reload: %w", err)
	}

	if len(ids) == 0 {
		return plugin.Reply(fmt.Sprintf("reloaded all plugins (%d loaded)", p.registry.Count())), nil
	}
	return plugin.Reply("reloaded " + strings.Join(ids, ", ")), nil
}

func (p *Plugin) elevate(inv *plugin.Invocation) (plugin.Result, error) {
	if inv.Level >= permission.Admin {
		return plugin.Reply("you already have admin access"), nil
	}
	inv.Log.Info("access request",
		"sender", inv.Message.Sender,
		"chat", inv.Message.Chat,
		"level", inv.Level.String())
	return plugin.Reply("request noted; an admin has to add you to the allow-list"), nil
}
