// Package transport defines the boundary between the runtime core and
// the chat network. The core talks to the network through exactly three
// outbound verbs plus an inbound message stream.
package transport

import "github.com/voxbot-dev/voxbot/internal/message"

// Sender is the outbound half of a transport. Handlers may hold a
// Sender for side-channel sends; those are the handler's own
// responsibility and are not tracked by the dispatcher.
type Sender interface {
	// SendText sends a text reply to a chat.
	SendText(target, text string) error

	// SendReaction attaches an emoji reaction to a message.
	SendReaction(ref message.Ref, emoji string) error

	// SendMedia sends binary media with an optional caption.
	SendMedia(target string, media []byte, caption string) error
}

// Transport is a full bidirectional chat connection.
type Transport interface {
	Sender

	// Receive returns the inbound message stream. The channel is
	// closed when the transport shuts down.
	Receive() <-chan message.Inbound

	// Close tears down the connection and closes the receive channel.
	Close() error
}
