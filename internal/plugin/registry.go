package plugin

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/voxbot-dev/voxbot/internal/storage"
)

// Entry is a registered plugin with its per-plugin resources.
type Entry struct {
	Plugin   Plugin
	Manifest *Manifest

	// Config is the validated, default-merged configuration.
	Config map[string]any

	// Store is the plugin's storage handle; nil unless declared.
	Store *storage.Store

	// commandNames are the command names this entry actually indexed
	// (collisions excluded), in declaration order.
	commandNames []string
}

// Registry holds the set of loaded plugins and indexes their commands
// and interaction handlers by name. It is populated by the Loader;
// mutation only happens during load/unload/reload.
type Registry struct {
	mu sync.RWMutex

	log *slog.Logger

	plugins   map[string]*Entry
	loadOrder []string

	// commands indexes lowercased command names globally.
	commands map[string]*Command

	// interactions indexes "pluginID/name".
	interactions map[string]*Interaction
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:          log,
		plugins:      make(map[string]*Entry),
		commands:     make(map[string]*Command),
		interactions: make(map[string]*Interaction),
	}
}

// Register validates and stores a plugin. Config-schema validation
// failure aborts registration entirely, so a half-registered plugin
// never becomes visible. A command-name collision logs an error and
// skips only the colliding command; the rest of the plugin loads.
// OnLoad fires once registered; an OnLoad error rolls the plugin back
// out of the registry.
func (r *Registry) Register(p Plugin, ctx *Context) error {
	man := p.Manifest()
	if man == nil {
		return ErrNilManifest
	}
	if err := man.Validate(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = &Context{}
	}
	if ctx.Registry == nil {
		ctx.Registry = r
	}
	if ctx.Log == nil {
		ctx.Log = r.log.With("plugin", man.Name)
	}

	cfg, err := man.ValidateConfig(ctx.Config)
	if err != nil {
		return err
	}
	ctx.Config = cfg

	r.mu.Lock()
	if _, exists := r.plugins[man.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", man.Name, ErrAlreadyLoaded)
	}

	entry := &Entry{
		Plugin:   p,
		Manifest: man,
		Config:   cfg,
		Store:    ctx.Store,
	}

	for _, cmd := range p.Commands() {
		name := strings.ToLower(cmd.Name)
		if holder, taken := r.commands[name]; taken {
			r.log.Error("command name collision, skipping",
				"command", name,
				"plugin", man.Name,
				"held_by", holder.PluginID())
			continue
		}
		cmd.owner = entry
		r.commands[name] = cmd
		entry.commandNames = append(entry.commandNames, name)
	}

	for _, in := range p.Interactions() {
		in.owner = entry
		r.interactions[man.Name+"/"+in.Name] = in
	}

	r.plugins[man.Name] = entry
	r.loadOrder = append(r.loadOrder, man.Name)
	r.mu.Unlock()

	if err := p.OnLoad(ctx); err != nil {
		r.remove(man.Name)
		return fmt.Errorf("plugin %q load hook: %w", man.Name, err)
	}

	return nil
}

// Unregister invokes the plugin's unload hook (best-effort, errors
// logged), releases its storage handle, and removes all its commands
// and interaction handlers from the indexes.
func (r *Registry) Unregister(id string, runHook bool) error {
	r.mu.RLock()
	entry, exists := r.plugins[id]
	r.mu.RUnlock()
	if !exists {
		return fmt.Errorf("plugin %q: %w", id, ErrNotLoaded)
	}

	if runHook {
		ctx := &Context{
			Log:      r.log.With("plugin", id),
			Config:   entry.Config,
			Store:    entry.Store,
			Registry: r,
		}
		if err := entry.Plugin.OnUnload(ctx); err != nil {
			r.log.Error("plugin unload hook failed", "plugin", id, "err", err)
		}
	}

	if entry.Store != nil {
		entry.Store.Release()
	}

	r.remove(id)
	return nil
}

// remove drops a plugin and its indexes.
func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.plugins[id]
	if !exists {
		return
	}

	for _, name := range entry.commandNames {
		// Only drop names this entry actually holds; a collided name
		// belongs to the first registrant.
		if cmd, ok := r.commands[name]; ok && cmd.owner == entry {
			delete(r.commands, name)
		}
	}
	for key, in := range r.interactions {
		if in.owner == entry {
			delete(r.interactions, key)
		}
	}

	delete(r.plugins, id)
	for i, name := range r.loadOrder {
		if name == id {
			r.loadOrder = append(r.loadOrder[:i], r.loadOrder[i+1:]...)
			break
		}
	}
}

// Command returns the command for a name, case-insensitively.
func (r *Registry) Command(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[strings.ToLower(name)]
	return cmd, ok
}

// Interaction resolves a stored continuation's handler reference.
func (r *Registry) Interaction(pluginID, name string) (*Interaction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.interactions[pluginID+"/"+name]
	return in, ok
}

// Entry returns a plugin's registry entry.
func (r *Registry) Entry(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.plugins[id]
	return entry, ok
}

// Loaded reports whether a plugin id is registered.
func (r *Registry) Loaded(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[id]
	return ok
}

// Plugins returns registered entries in load order.
func (r *Registry) Plugins() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.loadOrder))
	for _, id := range r.loadOrder {
		if entry, ok := r.plugins[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// LoadOrder returns plugin ids in load order.
func (r *Registry) LoadOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.loadOrder...)
}

// Commands returns all indexed commands in load order, then command
// declaration order within each plugin.
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cmds []*Command
	for _, id := range r.loadOrder {
		entry, ok := r.plugins[id]
		if !ok {
			continue
		}
		for _, name := range entry.commandNames {
			if cmd, ok := r.commands[name]; ok && cmd.owner == entry {
				cmds = append(cmds, cmd)
			}
		}
	}
	return cmds
}

// Observers returns loaded plugins that observe every inbound message,
// in load order.
func (r *Registry) Observers() []Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var obs []Observer
	for _, id := range r.loadOrder {
		entry, ok := r.plugins[id]
		if !ok {
			continue
		}
		if o, ok := entry.Plugin.(Observer); ok {
			obs = append(obs, o)
		}
	}
	return obs
}

// Count returns the number of loaded plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
