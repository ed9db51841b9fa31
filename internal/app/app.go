// Package app wires the bot's components together and manages the
// process lifecycle.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/voxbot-dev/voxbot/internal/config"
	"github.com/voxbot-dev/voxbot/internal/dispatch"
	"github.com/voxbot-dev/voxbot/internal/interaction"
	"github.com/voxbot-dev/voxbot/internal/permission"
	"github.com/voxbot-dev/voxbot/internal/plugin"
	"github.com/voxbot-dev/voxbot/internal/plugin/lua"
	"github.com/voxbot-dev/voxbot/internal/plugins"
	"github.com/voxbot-dev/voxbot/internal/ratelimit"
	"github.com/voxbot-dev/voxbot/internal/storage"
	"github.com/voxbot-dev/voxbot/internal/transport"
	"github.com/voxbot-dev/voxbot/internal/transport/channel"
	"github.com/voxbot-dev/voxbot/internal/transport/ws"
)

// Application coordinates the bot's components: configuration, storage,
// the plugin runtime, the dispatcher, and the transport.
type Application struct {
	cfg *config.Config
	log *slog.Logger

	storage    *storage.Manager
	registry   *plugin.Registry
	loader     *plugin.Loader
	dispatcher *dispatch.Dispatcher
	transport  transport.Transport

	// loopback is non-nil in channel mode, for local development and
	// tests.
	loopback *channel.Transport

	running      atomic.Bool
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the TOML configuration file.
	ConfigPath string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
}

// New loads configuration and initializes all components in dependency
// order. The transport is connected but messages are not consumed until
// Run.
func New(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	a := &Application{
		cfg: cfg,
		log: newLogger(cfg.Logging),
	}
	if err := a.bootstrap(); err != nil {
		a.Shutdown()
		return nil, err
	}
	return a, nil
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.Logging) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// bootstrap initializes components in dependency order.
func (a *Application) bootstrap() error {
	// 1. Storage.
	if a.cfg.Storage.Path != "" {
		mgr, err := storage.Open(a.cfg.Storage.Path)
		if err != nil {
			return &InitError{Component: "storage", Err: err}
		}
		a.storage = mgr
	}

	// 2. Plugin runtime.
	a.registry = plugin.NewRegistry(a.log)
	loaderOpts := []plugin.LoaderOption{
		plugin.WithLogger(a.log),
		plugin.WithConfigs(a.cfg.PluginConfigs()),
	}
	if a.storage != nil {
		loaderOpts = append(loaderOpts, plugin.WithStorage(a.storage))
	}
	a.loader = plugin.NewLoader(a.registry, loaderOpts...)

	for _, f := range plugins.Builtin() {
		if err := a.loader.Register(f); err != nil {
			return &InitError{Component: "plugin factories", Err: err}
		}
	}
	if dir := a.cfg.Plugins.LuaDir; dir != "" {
		factories, err := lua.Factories(dir)
		if err != nil {
			return &InitError{Component: "lua plugins", Err: err}
		}
		for _, f := range factories {
			if err := a.loader.Register(f); err != nil {
				return &InitError{Component: "lua plugins", Err: err}
			}
		}
	}

	// 3. Load plugins. An unknown configured id is fatal; individual
	// plugin faults are logged and the rest of the set stays up.
	var ids []string
	if len(a.cfg.Plugins.Enabled) > 0 {
		ids = a.cfg.Plugins.Enabled
	}
	if err := a.loader.Load(ids); err != nil {
		if errors.Is(err, plugin.ErrPluginNotFound) {
			return &InitError{Component: "plugins", Err: err}
		}
		a.log.Warn("some plugins failed to load", "err", err)
	}
	a.log.Info("plugins loaded", "count", a.registry.Count())

	// 4. Transport.
	switch a.cfg.Transport.Mode {
	case config.TransportWS:
		client, err := ws.Dial(a.cfg.Transport.URL, a.cfg.Transport.Token, a.log)
		if err != nil {
			return &InitError{Component: "transport", Err: err}
		}
		a.transport = client
	case config.TransportChannel:
		a.loopback = channel.New(64)
		a.transport = a.loopback
	}

	// 5. Dispatcher.
	resolver := permission.NewResolver(a.cfg.Permissions.Admins, a.cfg.Permissions.Trusted)
	a.dispatcher = dispatch.New(
		a.registry,
		resolver,
		ratelimit.NewLimiter(),
		interaction.NewStore(),
		a.transport,
		dispatch.DefaultConfig(),
		a.log,
	)

	return nil
}

// Run consumes inbound messages until the transport closes or ctx is
// canceled. Each message dispatches on its own goroutine; ordering
// within a conversation is enforced by the pending-interaction store,
// not by delivery order.
func (a *Application) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	a.log.Info("bot running", "transport", a.cfg.Transport.Mode)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-a.transport.Receive():
			if !ok {
				a.log.Info("transport closed")
				return nil
			}
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				a.dispatcher.HandleMessage(ctx, msg)
			}()
		}
	}
}

// Shutdown stops the transport, waits for in-flight handlers, unloads
// plugins in reverse load order, and closes storage. Safe to call more
// than once and from any goroutine.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(func() {
		if a.transport != nil {
			if err := a.transport.Close(); err != nil {
				a.log.Error("transport close", "err", err)
			}
		}

		a.wg.Wait()

		if a.loader != nil {
			order := a.registry.LoadOrder()
			for i := len(order) - 1; i >= 0; i-- {
				if err := a.loader.Unload(order[i], true); err != nil {
					a.log.Error("unload failed", "plugin", order[i], "err", err)
				}
			}
		}

		if a.storage != nil {
			if err := a.storage.Close(); err != nil {
				a.log.Error("storage close", "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
}

// Registry exposes the plugin registry.
func (a *Application) Registry() *plugin.Registry {
	return a.registry
}

// Loopback returns the in-memory transport, or nil unless the channel
// transport mode is configured.
func (a *Application) Loopback() *channel.Transport {
	return a.loopback
}
