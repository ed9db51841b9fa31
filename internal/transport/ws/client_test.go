package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// gatewayStub upgrades one connection, records frames, and can push
// message frames to the client.
type gatewayStub struct {
	t      *testing.T
	server *httptest.Server
	frames chan frame
	push   chan frame
}

func newGatewayStub(t *testing.T) *gatewayStub {
	t.Helper()
	g := &gatewayStub{
		t:      t,
		frames: make(chan frame, 16),
		push:   make(chan frame, 16),
	}

	upgrader := websocket.Upgrader{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		go func() {
			for f := range g.push {
				data, _ := json.Marshal(f)
				conn.WriteMessage(websocket.TextMessage, data)
			}
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			g.frames <- f
		}
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *gatewayStub) url() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http")
}

func (g *gatewayStub) nextFrame() frame {
	g.t.Helper()
	select {
	case f := <-g.frames:
		return f
	case <-time.After(2 * time.Second):
		g.t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func TestDialSendsAuthFrame(t *testing.T) {
	g := newGatewayStub(t)

	c, err := Dial(g.url(), "secret", slog.Default())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	f := g.nextFrame()
	if f.Type != frameAuth || f.Token != "secret" {
		t.Errorf("first frame = %+v, want auth with token", f)
	}
}

func TestSendText(t *testing.T) {
	g := newGatewayStub(t)

	c, err := Dial(g.url(), "tok", slog.Default())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	g.nextFrame() // auth

	if err := c.SendText("chat-1", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	f := g.nextFrame()
	if f.Type != frameText || f.Target != "chat-1" || f.Text != "hello" {
		t.Errorf("frame = %+v, want send.text to chat-1", f)
	}
	if f.ID == "" {
		t.Error("outbound frames must carry an id")
	}
}

func TestInboundMessageDelivered(t *testing.T) {
	g := newGatewayStub(t)

	c, err := Dial(g.url(), "tok", slog.Default())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	g.nextFrame() // auth

	g.push <- frame{Type: frameMessage, ID: "m1", Sender: "U1", Chat: "C1", Body: "/ping"}

	select {
	case msg := <-c.Receive():
		if msg.Sender != "U1" || msg.Chat != "C1" || msg.Body != "/ping" {
			t.Errorf("unexpected inbound %+v", msg)
		}
		if msg.Timestamp.IsZero() {
			t.Error("zero timestamps must be filled in")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestNonMessageFramesIgnored(t *testing.T) {
	g := newGatewayStub(t)

	c, err := Dial(g.url(), "tok", slog.Default())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	g.nextFrame() // auth

	g.push <- frame{Type: "ack", ID: "x"}
	g.push <- frame{Type: frameMessage, ID: "m2", Sender: "U", Chat: "C", Body: "hi"}

	select {
	case msg := <-c.Receive():
		if msg.ID != "m2" {
			t.Errorf("expected only the message frame, got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}
