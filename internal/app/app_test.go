package app_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxbot-dev/voxbot/internal/app"
	"github.com/voxbot-dev/voxbot/internal/message"
)

func newApp(t *testing.T) *app.Application {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "voxbot.toml")
	cfg := fmt.Sprintf(`
[storage]
path = %q

[permissions]
admins = ["admin"]

[logging]
level = "error"
`, filepath.Join(dir, "bot.db"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := app.New(app.Options{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func awaitReply(t *testing.T, a *app.Application, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, out := range a.Loopback().Sent() {
			if out.Kind == "text" && out.Text == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no %q reply, sent = %+v", want, a.Loopback().Sent())
}

func TestBuiltinPluginsLoad(t *testing.T) {
	a := newApp(t)
	defer a.Shutdown()

	for _, id := range []string{"ping", "echo", "help", "admin", "guess"} {
		if !a.Registry().Loaded(id) {
			t.Errorf("plugin %s not loaded", id)
		}
	}
}

func TestEndToEndPing(t *testing.T) {
	a := newApp(t)
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	a.Loopback().Inject(message.Inbound{Sender: "alice", Chat: "chat", Body: "/ping"})
	awaitReply(t, a, "pong")
}

func TestEndToEndContinuation(t *testing.T) {
	a := newApp(t)
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	a.Loopback().Inject(message.Inbound{Sender: "alice", Chat: "chat", Body: "/shout hey"})
	awaitReply(t, a, "really shout? (yes/no)")

	a.Loopback().Inject(message.Inbound{Sender: "alice", Chat: "chat", Body: "yes"})
	awaitReply(t, a, "HEY!")
}

func TestShutdownUnloadsPlugins(t *testing.T) {
	a := newApp(t)
	a.Shutdown()

	if n := a.Registry().Count(); n != 0 {
		t.Errorf("plugins still loaded after shutdown: %d", n)
	}

	// Idempotent.
	a.Shutdown()
}

func TestUnknownEnabledPluginIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "voxbot.toml")
	cfg := fmt.Sprintf(`
[storage]
path = %q

[plugins]
enabled = ["ping", "nonexistent"]

[logging]
level = "error"
`, filepath.Join(dir, "bot.db"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := app.New(app.Options{ConfigPath: cfgPath}); err == nil {
		t.Fatal("unknown enabled plugin accepted")
	}
}
