package plugin_test

import (
	"github.com/voxbot-dev/voxbot/internal/plugin"
)

// fake is a configurable test plugin.
type fake struct {
	man          *plugin.Manifest
	commands     []*plugin.Command
	interactions []*plugin.Interaction

	loads   int
	unloads int
	loadErr error

	lastCtx *plugin.Context
}

func newFake(id string, deps ...string) *fake {
	return &fake{
		man: &plugin.Manifest{
			Name:         id,
			Version:      "1.0.0",
			Dependencies: deps,
		},
	}
}

func (f *fake) withCommand(name string) *fake {
	f.commands = append(f.commands, &plugin.Command{
		Name: name,
		Handler: func(inv *plugin.Invocation) (plugin.Result, error) {
			return plugin.Reply(name + " from " + f.man.Name), nil
		},
	})
	return f
}

func (f *fake) Manifest() *plugin.Manifest            { return f.man }
func (f *fake) Commands() []*plugin.Command           { return f.commands }
func (f *fake) Interactions() []*plugin.Interaction   { return f.interactions }
func (f *fake) OnUnload(ctx *plugin.Context) error    { f.unloads++; return nil }

func (f *fake) OnLoad(ctx *plugin.Context) error {
	f.loads++
	f.lastCtx = ctx
	return f.loadErr
}
