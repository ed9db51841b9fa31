package echo_test

import (
	"errors"
	"testing"

	"github.com/voxbot-dev/voxbot/internal/message"
	"github.com/voxbot-dev/voxbot/internal/plugin"
	"github.com/voxbot-dev/voxbot/internal/plugins/echo"
)

func command(t *testing.T, p plugin.Plugin, name string) *plugin.Command {
	t.Helper()
	for _, cmd := range p.Commands() {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("no command %q", name)
	return nil
}

func TestEcho(t *testing.T) {
	p := echo.Factory().New()

	res, err := command(t, p, "echo").Handler(&plugin.Invocation{Arg: "hello"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.Text != "hello" {
		t.Errorf("reply = %q", res.Text)
	}
}

func TestEchoWithoutArg(t *testing.T) {
	p := echo.Factory().New()

	_, err := command(t, p, "echo").Handler(&plugin.Invocation{})
	var uerr *plugin.UserError
	if !errors.As(err, &uerr) {
		t.Errorf("err = %v, want usage error", err)
	}
}

func TestShoutConfirmFlow(t *testing.T) {
	p := echo.Factory().New()

	res, err := command(t, p, "shout").Handler(&plugin.Invocation{Arg: "hey"})
	if err != nil {
		t.Fatalf("shout: %v", err)
	}
	if res.Kind != plugin.ResultContinue || res.Interaction != "confirm" {
		t.Fatalf("result = %+v", res)
	}

	confirm := p.Interactions()[0]
	yes, err := confirm.Handler(&plugin.Resume{
		Invocation: plugin.Invocation{Message: message.Inbound{Body: "yes"}},
		State:      res.State,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if yes.Kind != plugin.ResultReply || yes.Text != "HEY!" {
		t.Errorf("confirmed = %+v", yes)
	}

	no, err := confirm.Handler(&plugin.Resume{
		Invocation: plugin.Invocation{Message: message.Inbound{Body: "nah"}},
		State:      res.State,
	})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if no.Kind != plugin.ResultReact || no.Ok {
		t.Errorf("declined = %+v", no)
	}
}
