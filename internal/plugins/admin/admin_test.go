package admin_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/voxbot-dev/voxbot/internal/permission"
	"github.com/voxbot-dev/voxbot/internal/plugin"
	"github.com/voxbot-dev/voxbot/internal/plugins/admin"
	"github.com/voxbot-dev/voxbot/internal/plugins/help"
	"github.com/voxbot-dev/voxbot/internal/plugins/ping"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLoader(t *testing.T) (*plugin.Loader, *plugin.Registry) {
	t.Helper()
	log := discard()
	registry := plugin.NewRegistry(log)
	loader := plugin.NewLoader(registry, plugin.WithLogger(log))

	for _, f := range []plugin.Factory{help.Factory(), admin.Factory(), ping.Factory()} {
		if err := loader.Register(f); err != nil {
			t.Fatalf("register factory: %v", err)
		}
	}
	if err := loader.Load(nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	return loader, registry
}

func command(t *testing.T, registry *plugin.Registry, name string) *plugin.Command {
	t.Helper()
	cmd, ok := registry.Command(name)
	if !ok {
		t.Fatalf("command %q not registered", name)
	}
	return cmd
}

func TestDependencyOnHelp(t *testing.T) {
	_, registry := newLoader(t)

	order := registry.LoadOrder()
	helpAt, adminAt := -1, -1
	for i, id := range order {
		switch id {
		case "help":
			helpAt = i
		case "admin":
			adminAt = i
		}
	}
	if helpAt == -1 || adminAt == -1 || helpAt > adminAt {
		t.Errorf("load order = %v, want help before admin", order)
	}
}

func TestPluginsListing(t *testing.T) {
	_, registry := newLoader(t)

	res, err := command(t, registry, "plugins").Handler(&plugin.Invocation{Log: discard()})
	if err != nil {
		t.Fatalf("plugins: %v", err)
	}
	for _, want := range []string{"help", "admin", "ping"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("listing missing %q:\n%s", want, res.Text)
		}
	}
}

func TestReloadAll(t *testing.T) {
	_, registry := newLoader(t)

	res, err := command(t, registry, "reload").Handler(&plugin.Invocation{Log: discard()})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !strings.Contains(res.Text, "reloaded") {
		t.Errorf("reply = %q", res.Text)
	}
	if registry.Count() != 3 {
		t.Errorf("count after reload = %d, want 3", registry.Count())
	}
}

func TestReloadSubset(t *testing.T) {
	_, registry := newLoader(t)

	res, err := command(t, registry, "reload").Handler(&plugin.Invocation{
		Arg: "ping",
		Log: discard(),
	})
	if err != nil {
		t.Fatalf("reload ping: %v", err)
	}
	if !strings.Contains(res.Text, "ping") {
		t.Errorf("reply = %q", res.Text)
	}
	if !registry.Loaded("ping") {
		t.Error("ping not loaded after subset reload")
	}
}

func TestElevate(t *testing.T) {
	_, registry := newLoader(t)
	cmd := command(t, registry, "elevate")

	res, err := cmd.Handler(&plugin.Invocation{Level: permission.None, Log: discard()})
	if err != nil {
		t.Fatalf("elevate: %v", err)
	}
	if !strings.Contains(res.Text, "allow-list") {
		t.Errorf("reply = %q", res.Text)
	}

	already, err := cmd.Handler(&plugin.Invocation{Level: permission.Admin, Log: discard()})
	if err != nil {
		t.Fatalf("elevate as admin: %v", err)
	}
	if !strings.Contains(already.Text, "already") {
		t.Errorf("reply = %q", already.Text)
	}
}
