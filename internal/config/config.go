// Package config loads bot configuration from a TOML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix for override environment variables.
const EnvPrefix = "VOXBOT_"

// Transport modes.
const (
	TransportWS      = "ws"
	TransportChannel = "channel"
)

// Config is the full bot configuration.
type Config struct {
	Transport   Transport   `toml:"transport"`
	Permissions Permissions `toml:"permissions"`
	Plugins     Plugins     `toml:"plugins"`
	Storage     Storage     `toml:"storage"`
	Logging     Logging     `toml:"logging"`

	// Plugin holds per-plugin configuration tables, keyed by plugin
	// id. Values are validated against the plugin's manifest schema at
	// load time, not here.
	Plugin map[string]map[string]any `toml:"plugin"`
}

// Transport selects and configures the chat gateway connection.
type Transport struct {
	// Mode is "ws" for the websocket gateway or "channel" for the
	// in-memory loopback used in development.
	Mode string `toml:"mode"`

	// URL is the gateway endpoint (ws mode).
	URL string `toml:"url"`

	// Token authenticates against the gateway. Prefer setting it via
	// VOXBOT_TRANSPORT_TOKEN over writing it into the file.
	Token string `toml:"token"`
}

// Permissions holds the static allow-lists.
type Permissions struct {
	Admins  []string `toml:"admins"`
	Trusted []string `toml:"trusted"`
}

// Plugins selects the plugins to load.
type Plugins struct {
	// Enabled is the ordered list of plugin ids to load. Empty means
	// every registered plugin.
	Enabled []string `toml:"enabled"`

	// LuaDir, when set, is scanned for *.lua plugin scripts.
	LuaDir string `toml:"lua_dir"`
}

// Storage configures the persistence database.
type Storage struct {
	// Path is the SQLite database file. Empty disables storage; plugins
	// that declare a storage need then fail to load.
	Path string `toml:"path"`
}

// Logging configures the structured logger.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Transport: Transport{
			Mode: TransportChannel,
		},
		Storage: Storage{
			Path: "voxbot.db",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path, applies environment overrides, and
// validates the result. A missing file is not an error; the defaults
// plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from VOXBOT_-prefixed environment variables.
func (c *Config) applyEnv() {
	set := func(name string, dst *string) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = val
		}
	}
	setList := func(name string, dst *[]string) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = splitList(val)
		}
	}

	set("TRANSPORT_MODE", &c.Transport.Mode)
	set("TRANSPORT_URL", &c.Transport.URL)
	set("TRANSPORT_TOKEN", &c.Transport.Token)
	set("STORAGE_PATH", &c.Storage.Path)
	set("LOG_LEVEL", &c.Logging.Level)
	set("LOG_FORMAT", &c.Logging.Format)
	set("LUA_DIR", &c.Plugins.LuaDir)
	setList("ADMINS", &c.Permissions.Admins)
	setList("TRUSTED", &c.Permissions.Trusted)
	setList("PLUGINS", &c.Plugins.Enabled)
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case TransportWS:
		if c.Transport.URL == "" {
			return fmt.Errorf("transport.url: %w", ErrMissingURL)
		}
	case TransportChannel:
		// Nothing required.
	default:
		return fmt.Errorf("transport.mode %q: %w", c.Transport.Mode, ErrUnknownTransport)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q: %w", c.Logging.Level, ErrBadLogLevel)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q: %w", c.Logging.Format, ErrBadLogFormat)
	}

	return nil
}

// PluginConfigs returns the per-plugin config tables, never nil.
func (c *Config) PluginConfigs() map[string]map[string]any {
	if c.Plugin == nil {
		return map[string]map[string]any{}
	}
	return c.Plugin
}

// splitList splits a comma-separated env value into trimmed non-empty
// items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
