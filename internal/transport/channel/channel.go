// Package channel provides an in-memory transport for tests and local
// development. Inbound messages are injected directly; outbound actions
// are recorded and observable.
package channel

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxbot-dev/voxbot/internal/message"
)

// Outbound is one recorded outbound action.
type Outbound struct {
	Kind    string // "text", "reaction", "media"
	Target  string
	Text    string
	Ref     message.Ref
	Emoji   string
	Media   []byte
	Caption string
}

// Transport is a loopback transport.
type Transport struct {
	mu     sync.Mutex
	in     chan message.Inbound
	sent   []Outbound
	closed bool
}

// New creates a transport with the given inbound buffer size.
func New(buffer int) *Transport {
	if buffer <= 0 {
		buffer = 16
	}
	return &Transport{
		in: make(chan message.Inbound, buffer),
	}
}

// Inject delivers an inbound message as if it arrived from the network.
// A zero ID or timestamp is filled in. Returns ErrClosed after Close;
// the mutex is held across the send so Close cannot slip in between
// the check and the delivery.
func (t *Transport) Inject(msg message.Inbound) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.in <- msg
	return nil
}

// Receive returns the inbound stream.
func (t *Transport) Receive() <-chan message.Inbound {
	return t.in
}

// SendText records a text reply.
func (t *Transport) SendText(target, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.sent = append(t.sent, Outbound{Kind: "text", Target: target, Text: text})
	return nil
}

// SendReaction records a reaction.
func (t *Transport) SendReaction(ref message.Ref, emoji string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.sent = append(t.sent, Outbound{Kind: "reaction", Ref: ref, Emoji: emoji})
	return nil
}

// SendMedia records a media send.
func (t *Transport) SendMedia(target string, media []byte, caption string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.sent = append(t.sent, Outbound{Kind: "media", Target: target, Media: media, Caption: caption})
	return nil
}

// Sent returns a copy of all recorded outbound actions.
func (t *Transport) Sent() []Outbound {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Outbound, len(t.sent))
	copy(out, t.sent)
	return out
}

// Clear drops the recorded outbound actions.
func (t *Transport) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}

// Close closes the inbound stream.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.in)
	return nil
}
