package lua

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/voxbot-dev/voxbot/internal/permission"
	"github.com/voxbot-dev/voxbot/internal/plugin"
	"github.com/voxbot-dev/voxbot/internal/ratelimit"
)

// Plugin adapts a Lua script to the plugin interface. The script runs
// once at construction and must leave a global table named "plugin":
//
//	plugin = {
//	    name = "greet",
//	    version = "1.0.0",
//	    description = "says hello",
//	    commands = {
//	        {
//	            name = "greet",
//	            min_level = "trusted",
//	            rate = { { window = "1m", max = 5 } },
//	            handler = function(ctx)
//	                return { reply = "hello " .. ctx.sender }
//	            end,
//	        },
//	    },
//	}
//
// Handlers receive a context table (sender, chat, body, arg, level,
// config, and state on resume) and return nil for silence, a string
// reply, or a table with one of reply, react, or prompt/interaction/
// state fields. A table with an error field becomes a user-facing
// error message.
type Plugin struct {
	state    *State
	manifest *plugin.Manifest

	commands     []*plugin.Command
	interactions []*plugin.Interaction

	onLoad   *lua.LFunction
	onUnload *lua.LFunction

	// config is captured at OnLoad for handler contexts.
	config map[string]any
}

// LoadScript runs the script file and builds a plugin from its
// declaration.
func LoadScript(path string) (*Plugin, error) {
	state := NewState()
	if err := state.DoFile(path); err != nil {
		state.Close()
		return nil, fmt.Errorf("running %s: %w", path, err)
	}
	p, err := fromState(state)
	if err != nil {
		state.Close()
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return p, nil
}

// LoadSource runs script source text and builds a plugin from its
// declaration.
func LoadSource(code string) (*Plugin, error) {
	state := NewState()
	if err := state.DoString(code); err != nil {
		state.Close()
		return nil, err
	}
	p, err := fromState(state)
	if err != nil {
		state.Close()
		return nil, err
	}
	return p, nil
}

// fromState reads the global plugin table out of an executed state.
func fromState(state *State) (*Plugin, error) {
	decl, ok := state.Global("plugin").(*lua.LTable)
	if !ok {
		return nil, ErrNoPluginTable
	}

	p := &Plugin{state: state}
	if err := p.parseManifest(decl); err != nil {
		return nil, err
	}
	if err := p.parseCommands(decl); err != nil {
		return nil, err
	}
	if err := p.parseInteractions(decl); err != nil {
		return nil, err
	}

	p.onLoad, _ = tableFunc(decl, "on_load")
	p.onUnload, _ = tableFunc(decl, "on_unload")
	return p, nil
}

func (p *Plugin) parseManifest(decl *lua.LTable) error {
	man := &plugin.Manifest{Version: "0.1.0"}
	man.Name, _ = tableString(decl, "name")
	if v, ok := tableString(decl, "version"); ok {
		man.Version = v
	}
	man.DisplayName, _ = tableString(decl, "display_name")
	man.Description, _ = tableString(decl, "description")
	man.Hidden, _ = tableBool(decl, "hidden")
	man.UsesStorage, _ = tableBool(decl, "uses_storage")

	if deps, ok := tableTable(decl, "dependencies"); ok {
		deps.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				man.Dependencies = append(man.Dependencies, string(s))
			}
		})
	}

	if rate, ok := tableTable(decl, "rate"); ok {
		quotas, err := parseQuotas(rate)
		if err != nil {
			return err
		}
		man.Quotas = quotas
	}

	p.manifest = man
	return man.Validate()
}

func (p *Plugin) parseCommands(decl *lua.LTable) error {
	cmds, ok := tableTable(decl, "commands")
	if !ok {
		return nil
	}

	var err error
	cmds.ForEach(func(_, v lua.LValue) {
		if err != nil {
			return
		}
		ct, ok := v.(*lua.LTable)
		if !ok {
			return
		}

		name, _ := tableString(ct, "name")
		if name == "" {
			err = fmt.Errorf("plugin %s: command without a name", p.manifest.Name)
			return
		}

		fn, ok := tableFunc(ct, "handler")
		if !ok {
			err = fmt.Errorf("plugin %s: command %s: %w", p.manifest.Name, name, ErrBadHandler)
			return
		}

		cmd := &plugin.Command{Name: name, Handler: p.commandHandler(fn)}
		cmd.Description, _ = tableString(ct, "description")
		cmd.Hidden, _ = tableBool(ct, "hidden")
		cmd.Weight, _ = tableInt(ct, "weight")

		if lvl, ok := tableString(ct, "min_level"); ok {
			cmd.MinLevel, err = parseLevel(lvl)
			if err != nil {
				err = fmt.Errorf("plugin %s: command %s: %w", p.manifest.Name, name, err)
				return
			}
		}

		if rate, ok := tableTable(ct, "rate"); ok {
			cmd.Quotas, err = parseQuotas(rate)
			if err != nil {
				err = fmt.Errorf("plugin %s: command %s: %w", p.manifest.Name, name, err)
				return
			}
		}

		p.commands = append(p.commands, cmd)
	})
	return err
}

func (p *Plugin) parseInteractions(decl *lua.LTable) error {
	ins, ok := tableTable(decl, "interactions")
	if !ok {
		return nil
	}

	var err error
	ins.ForEach(func(_, v lua.LValue) {
		if err != nil {
			return
		}
		it, ok := v.(*lua.LTable)
		if !ok {
			return
		}

		name, _ := tableString(it, "name")
		if name == "" {
			err = fmt.Errorf("plugin %s: interaction without a name", p.manifest.Name)
			return
		}
		fn, ok := tableFunc(it, "handler")
		if !ok {
			err = fmt.Errorf("plugin %s: interaction %s: %w", p.manifest.Name, name, ErrBadHandler)
			return
		}

		p.interactions = append(p.interactions, &plugin.Interaction{
			Name:    name,
			Handler: p.resumeHandler(fn),
		})
	})
	return err
}

// commandHandler wraps a Lua function as a command handler.
func (p *Plugin) commandHandler(fn *lua.LFunction) func(*plugin.Invocation) (plugin.Result, error) {
	return func(inv *plugin.Invocation) (plugin.Result, error) {
		out, err := p.state.CallHandler(fn, p.handlerContext(inv, nil))
		if err != nil {
			return plugin.None(), err
		}
		return interpretResult(out)
	}
}

// resumeHandler wraps a Lua function as an interaction handler.
func (p *Plugin) resumeHandler(fn *lua.LFunction) func(*plugin.Resume) (plugin.Result, error) {
	return func(res *plugin.Resume) (plugin.Result, error) {
		out, err := p.state.CallHandler(fn, p.handlerContext(&res.Invocation, res.State))
		if err != nil {
			return plugin.None(), err
		}
		return interpretResult(out)
	}
}

// handlerContext builds the ctx table contents for a handler call.
func (p *Plugin) handlerContext(inv *plugin.Invocation, state []byte) map[string]any {
	ctx := map[string]any{
		"sender": inv.Message.Sender,
		"chat":   inv.Message.Chat,
		"body":   inv.Message.Body,
		"arg":    inv.Arg,
		"level":  inv.Level.String(),
	}
	if p.config != nil {
		ctx["config"] = p.config
	}
	if state != nil {
		ctx["state"] = string(state)
	}
	return ctx
}

// interpretResult maps a handler's returned Go value to a Result.
func interpretResult(out any) (plugin.Result, error) {
	switch v := out.(type) {
	case nil:
		return plugin.None(), nil
	case string:
		return plugin.Reply(v), nil
	case map[string]any:
		if msg, ok := v["error"].(string); ok {
			return plugin.None(), &plugin.UserError{Msg: msg}
		}
		if text, ok := v["reply"].(string); ok {
			return plugin.Reply(text), nil
		}
		if okv, ok := v["react"].(bool); ok {
			return plugin.React(okv), nil
		}
		if name, ok := v["interaction"].(string); ok {
			prompt, _ := v["prompt"].(string)
			var state []byte
			if s, ok := v["state"].(string); ok {
				state = []byte(s)
			}
			return plugin.Continue(prompt, name, state), nil
		}
		return plugin.None(), nil
	default:
		return plugin.None(), fmt.Errorf("handler returned unsupported value %T", out)
	}
}

// Manifest implements plugin.Plugin.
func (p *Plugin) Manifest() *plugin.Manifest { return p.manifest }

// Commands implements plugin.Plugin.
func (p *Plugin) Commands() []*plugin.Command { return p.commands }

// Interactions implements plugin.Plugin.
func (p *Plugin) Interactions() []*plugin.Interaction { return p.interactions }

// OnLoad runs the script's on_load function, if declared.
func (p *Plugin) OnLoad(ctx *plugin.Context) error {
	p.config = ctx.Config
	if p.onLoad == nil {
		return nil
	}
	_, err := p.state.CallHandler(p.onLoad, map[string]any{"config": p.config})
	return err
}

// OnUnload runs the script's on_unload function, then closes the
// interpreter.
func (p *Plugin) OnUnload(ctx *plugin.Context) error {
	var err error
	if p.onUnload != nil {
		_, err = p.state.CallHandler(p.onUnload, nil)
	}
	if cerr := p.state.Close(); err == nil {
		err = cerr
	}
	return err
}

// parseLevel maps a level name to its ordinal.
func parseLevel(s string) (permission.Level, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return permission.None, nil
	case "trusted":
		return permission.Trusted, nil
	case "admin":
		return permission.Admin, nil
	default:
		return permission.None, fmt.Errorf("%q: %w", s, ErrBadLevel)
	}
}

// parseQuotas reads an array of {window=<duration>, max=<points>}
// tables.
func parseQuotas(rate *lua.LTable) ([]ratelimit.Quota, error) {
	var quotas []ratelimit.Quota
	var err error
	rate.ForEach(func(_, v lua.LValue) {
		if err != nil {
			return
		}
		qt, ok := v.(*lua.LTable)
		if !ok {
			return
		}

		window, _ := tableString(qt, "window")
		max, _ := tableInt(qt, "max")
		d, perr := time.ParseDuration(window)
		if perr != nil {
			err = fmt.Errorf("rate window %q: %w", window, perr)
			return
		}
		quotas = append(quotas, ratelimit.Quota{Window: d, MaxPoints: max})
	})
	return quotas, err
}

// Factories scans dir for *.lua scripts and returns one factory per
// script. The factory id is the filename without extension and must
// match the script's declared plugin name; construction failures
// surface at load time through the returned plugin's OnLoad.
func Factories(dir string) ([]plugin.Factory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading plugin dir %s: %w", dir, err)
	}

	var factories []plugin.Factory
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".lua")
		path := filepath.Join(dir, entry.Name())

		factories = append(factories, plugin.Factory{
			ID: id,
			New: func() plugin.Plugin {
				p, err := LoadScript(path)
				if err != nil {
					return &broken{id: id, err: err}
				}
				if p.manifest.Name != id {
					p.state.Close()
					return &broken{id: id, err: fmt.Errorf(
						"script declares name %q, file requires %q", p.manifest.Name, id)}
				}
				return p
			},
		})
	}
	return factories, nil
}

// broken stands in for a script that failed to load; registration
// fails at OnLoad with the original error.
type broken struct {
	id  string
	err error
}

func (b *broken) Manifest() *plugin.Manifest {
	return &plugin.Manifest{Name: b.id, Version: "0.0.0"}
}

func (b *broken) Commands() []*plugin.Command         { return nil }
func (b *broken) Interactions() []*plugin.Interaction { return nil }
func (b *broken) OnLoad(ctx *plugin.Context) error    { return b.err }
func (b *broken) OnUnload(ctx *plugin.Context) error  { return nil }
