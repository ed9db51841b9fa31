// Package ping provides the liveness check command.
package ping

import (
	"time"

	"github.com/voxbot-dev/voxbot/internal/plugin"
	"github.com/voxbot-dev/voxbot/internal/ratelimit"
)

// Plugin replies "pong" to /ping.
type Plugin struct{}

// Factory returns the plugin factory.
func Factory() plugin.Factory {
	return plugin.Factory{ID: "ping", New: func() plugin.Plugin { return &Plugin{} }}
}

func (p *Plugin) Manifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:        "ping",
		DisplayName: "Ping",
		Description: "Liveness check",
		Version:     "1.0.0",
	}
}

func (p *Plugin) Commands() []*plugin.Command {
	return []*plugin.Command{
		{
			Name:        "ping",
			Description: "check the bot is alive",
			Quotas: []ratelimit.Quota{
				{Window: 10 * time.Second, MaxPoints: 3},
				{Window: time.Hour, MaxPoints: 60},
			},
			Handler: func(inv *plugin.Invocation) (plugin.Result, error) {
				return plugin.Reply("pong"), nil
			},
		},
	}
}

func (p *Plugin) Interactions() []*plugin.Interaction { return nil }
func (p *Plugin) OnLoad(ctx *plugin.Context) error    { return nil }
func (p *Plugin) OnUnload(ctx *plugin.Context) error  { return nil }
