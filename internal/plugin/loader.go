package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/voxbot-dev/voxbot/internal/storage"
)

// Loader instantiates plugins from an ordered factory list, resolves
// inter-plugin dependency order, and registers them into the Registry.
type Loader struct {
	mu sync.Mutex

	log      *slog.Logger
	registry *Registry
	storage  *storage.Manager

	// configs holds raw per-plugin configuration blobs keyed by id.
	configs map[string]map[string]any

	// factories in declaration order; the order is the topological
	// tie-break and therefore the command-collision tie-break.
	factories []Factory
	index     map[string]int

	// lastRequested remembers the last explicit Load target set so
	// Reload(nil) can re-run the full configured load.
	lastRequested []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// WithStorage sets the storage manager used to provision per-plugin
// stores.
func WithStorage(m *storage.Manager) LoaderOption {
	return func(l *Loader) {
		l.storage = m
	}
}

// WithConfigs sets the raw per-plugin configuration blobs.
func WithConfigs(configs map[string]map[string]any) LoaderOption {
	return func(l *Loader) {
		l.configs = configs
	}
}

// NewLoader creates a loader that populates registry.
func NewLoader(registry *Registry, opts ...LoaderOption) *Loader {
	l := &Loader{
		log:      slog.Default(),
		registry: registry,
		configs:  make(map[string]map[string]any),
		index:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register adds a plugin factory. Declaration order is significant.
func (l *Loader) Register(f Factory) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.index[f.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFactory, f.ID)
	}
	l.index[f.ID] = len(l.factories)
	l.factories = append(l.factories, f)
	return nil
}

// IDs returns all declared plugin ids in declaration order.
func (l *Loader) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.declaredIDs()
}

func (l *Loader) declaredIDs() []string {
	ids := make([]string, len(l.factories))
	for i, f := range l.factories {
		ids[i] = f.ID
	}
	return ids
}

// node is one vertex of the dependency graph under resolution.
type node struct {
	id     string
	plugin Plugin
	man    *Manifest
	deps   []string
	fault  error
}

// Load instantiates and registers the given plugin set (nil or empty
// means every declared plugin) plus transitive dependencies, in one
// valid topological order with ties broken by declaration order.
//
// An unknown requested id is a fatal configuration error: nothing is
// loaded and the error is returned. A dependency cycle or a dependency
// on an unresolvable id aborts only the affected subgraph; those
// faults are logged, the affected plugins stay absent, and the
// remaining subgraphs still load. The joined subgraph faults are
// returned for observability.
func (l *Loader) Load(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ids, true)
}

// load runs one load pass. Must be called with l.mu held.
func (l *Loader) load(ids []string, remember bool) error {
	if len(ids) == 0 {
		ids = l.declaredIDs()
	}

	// A listed plugin that cannot be found is a fatal configuration
	// error surfaced before anything loads.
	for _, id := range ids {
		if _, ok := l.index[id]; !ok {
			return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
		}
	}
	if remember {
		l.lastRequested = append([]string{}, ids...)
	}

	nodes, order := l.resolve(ids)

	var faults []error
	for _, id := range order {
		n := nodes[id]
		if n.fault != nil {
			l.log.Error("plugin load fault", "plugin", id, "err", n.fault)
			faults = append(faults, fmt.Errorf("%s: %w", id, n.fault))
			continue
		}
		if l.registry.Loaded(id) {
			// Already present: requested and also a dependency of
			// another target, or a survivor of a partial reload.
			continue
		}
		if err := l.register(n); err != nil {
			n.fault = err
			l.log.Error("plugin load fault", "plugin", id, "err", err)
			faults = append(faults, fmt.Errorf("%s: %w", id, err))
			l.failDependents(nodes, order, id)
		}
	}

	return errors.Join(faults...)
}

// resolve builds the dependency graph for the requested ids plus
// transitive dependencies and returns one topological order.
func (l *Loader) resolve(ids []string) (map[string]*node, []string) {
	nodes := make(map[string]*node)

	// Collect the closure, instantiating each plugin once to read its
	// manifest. Unresolvable dependencies become faulted nodes.
	var visit func(id string) *node
	visit = func(id string) *node {
		if n, ok := nodes[id]; ok {
			return n
		}

		n := &node{id: id}
		nodes[id] = n

		pos, ok := l.index[id]
		if !ok {
			n.fault = ErrDependencyNotFound
			return n
		}

		n.plugin = l.factories[pos].New()
		n.man = n.plugin.Manifest()
		if n.man == nil {
			n.fault = ErrNilManifest
			return n
		}
		n.deps = n.man.Dependencies

		for _, dep := range n.deps {
			visit(dep)
		}
		return n
	}
	for _, id := range ids {
		visit(id)
	}

	// Kahn's algorithm; the ready list is scanned in declaration
	// order so ties break deterministically.
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for id, n := range nodes {
		for _, dep := range n.deps {
			if _, ok := nodes[dep]; ok {
				indegree[id]++
				dependents[dep] = append(dependents[dep], id)
			}
		}
	}

	ordered := make([]string, 0, len(nodes))
	placed := make(map[string]bool, len(nodes))
	for len(ordered) < len(nodes) {
		advanced := false
		for _, f := range l.factories {
			if _, ok := nodes[f.ID]; !ok || placed[f.ID] || indegree[f.ID] > 0 {
				continue
			}
			placed[f.ID] = true
			ordered = append(ordered, f.ID)
			for _, dep := range dependents[f.ID] {
				indegree[dep]--
			}
			advanced = true
		}
		// Nodes without factories (unresolvable deps) have no
		// incoming edges of their own; place them so dependents see
		// the fault.
		for id := range nodes {
			if placed[id] || indegree[id] > 0 {
				continue
			}
			if _, hasFactory := l.index[id]; !hasFactory {
				placed[id] = true
				ordered = append(ordered, id)
				for _, dep := range dependents[id] {
					indegree[dep]--
				}
				advanced = true
			}
		}
		if !advanced {
			break
		}
	}

	// Whatever never became ready is part of a cycle.
	for id, n := range nodes {
		if !placed[id] && n.fault == nil {
			n.fault = ErrCyclicDependency
			ordered = append(ordered, id)
		} else if !placed[id] {
			ordered = append(ordered, id)
		}
	}

	// Propagate faults downstream: a plugin whose dependency faulted
	// cannot load.
	changed := true
	for changed {
		changed = false
		for _, n := range nodes {
			if n.fault != nil {
				continue
			}
			for _, dep := range n.deps {
				if d, ok := nodes[dep]; ok && d.fault != nil {
					n.fault = fmt.Errorf("%w: %s", ErrDependencyFailed, dep)
					changed = true
					break
				}
			}
		}
	}

	return nodes, ordered
}

// register provisions resources and registers one resolved plugin.
func (l *Loader) register(n *node) error {
	ctx := &Context{
		Log:      l.log.With("plugin", n.id),
		Config:   l.configs[n.id],
		Registry: l.registry,
		Loader:   l,
	}

	if n.man.UsesStorage {
		if l.storage == nil {
			return ErrStorageUnavailable
		}
		ctx.Store = l.storage.Store(n.id)
	}

	if err := l.registry.Register(n.plugin, ctx); err != nil {
		if ctx.Store != nil {
			ctx.Store.Release()
		}
		return err
	}

	l.log.Info("plugin loaded", "plugin", n.id, "version", n.man.Version)
	return nil
}

// failDependents marks every not-yet-registered node depending on
// failed (directly or transitively) as faulted.
func (l *Loader) failDependents(nodes map[string]*node, order []string, failed string) {
	for _, id := range order {
		n := nodes[id]
		if n.fault != nil || l.registry.Loaded(id) {
			continue
		}
		for _, dep := range n.deps {
			if dep == failed || (nodes[dep] != nil && nodes[dep].fault != nil) {
				n.fault = fmt.Errorf("%w: %s", ErrDependencyFailed, dep)
				break
			}
		}
	}
}

// Unload removes a single plugin from the registry.
func (l *Loader) Unload(id string, runHook bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Unregister(id, runHook)
}

// Reload unloads either the given subset or everything, then reloads
// it, re-running load hooks on survivors. Not atomic: a failure
// partway through loading leaves the registry partially reloaded,
// which is logged.
func (l *Loader) Reload(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var targets []string
	if len(ids) == 0 {
		targets = l.registry.LoadOrder()
	} else {
		targets = ids
	}

	// Unload in reverse load order so dependents go before their
	// dependencies.
	loadOrder := l.registry.LoadOrder()
	for i := len(loadOrder) - 1; i >= 0; i-- {
		id := loadOrder[i]
		for _, t := range targets {
			if id == t {
				if err := l.registry.Unregister(id, true); err != nil {
					l.log.Error("reload unload failed", "plugin", id, "err", err)
				}
				break
			}
		}
	}

	var requested []string
	if len(ids) == 0 {
		requested = l.lastRequested
	} else {
		requested = ids
	}

	if err := l.load(requested, false); err != nil {
		l.log.Error("reload left registry partially loaded", "err", err)
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}
