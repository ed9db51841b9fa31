package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxbot-dev/voxbot/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxbot.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Transport.Mode != config.TransportChannel {
		t.Errorf("mode = %q", cfg.Transport.Mode)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Path != "voxbot.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[transport]
mode = "ws"
url = "wss://gateway.example.com/bot"
token = "secret"

[permissions]
admins = ["alice"]
trusted = ["bob", "lobby"]

[plugins]
enabled = ["ping", "help"]

[storage]
path = "/var/lib/voxbot/state.db"

[logging]
level = "debug"
format = "json"

[plugin.ai]
provider = "openai"
model = "gpt-4o-mini"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Transport.Mode != config.TransportWS || cfg.Transport.URL != "wss://gateway.example.com/bot" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if len(cfg.Permissions.Admins) != 1 || cfg.Permissions.Admins[0] != "alice" {
		t.Errorf("admins = %v", cfg.Permissions.Admins)
	}
	if len(cfg.Plugins.Enabled) != 2 {
		t.Errorf("enabled = %v", cfg.Plugins.Enabled)
	}

	ai := cfg.PluginConfigs()["ai"]
	if ai == nil || ai["provider"] != "openai" {
		t.Errorf("plugin.ai = %v", ai)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[transport]
mode = "ws"
url = "wss://file.example.com"
`)

	t.Setenv("VOXBOT_TRANSPORT_URL", "wss://env.example.com")
	t.Setenv("VOXBOT_TRANSPORT_TOKEN", "env-secret")
	t.Setenv("VOXBOT_ADMINS", "carol, dave")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Transport.URL != "wss://env.example.com" {
		t.Errorf("url = %q, env override lost", cfg.Transport.URL)
	}
	if cfg.Transport.Token != "env-secret" {
		t.Errorf("token = %q", cfg.Transport.Token)
	}
	if len(cfg.Permissions.Admins) != 2 || cfg.Permissions.Admins[1] != "dave" {
		t.Errorf("admins = %v", cfg.Permissions.Admins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{
			name:    "ws without url",
			mutate:  func(c *config.Config) { c.Transport.Mode = config.TransportWS },
			wantErr: config.ErrMissingURL,
		},
		{
			name:    "unknown mode",
			mutate:  func(c *config.Config) { c.Transport.Mode = "irc" },
			wantErr: config.ErrUnknownTransport,
		},
		{
			name:    "bad level",
			mutate:  func(c *config.Config) { c.Logging.Level = "verbose" },
			wantErr: config.ErrBadLogLevel,
		},
		{
			name:    "bad format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: config.ErrBadLogFormat,
		},
		{
			name:   "valid defaults",
			mutate: func(c *config.Config) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "[transport\nmode=")
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
