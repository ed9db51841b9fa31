// Package message defines the inbound message model shared by the
// transport and the dispatcher.
package message

import "time"

// Inbound is a single message received from the chat transport.
// The runtime treats the body as opaque text; transport-specific
// metadata stays behind the Ref.
type Inbound struct {
	// ID is the transport-assigned message identifier.
	ID string

	// Sender identifies the user who sent the message.
	Sender string

	// Chat identifies the conversation (group or direct chat).
	Chat string

	// Body is the message text.
	Body string

	// ReplyTo is the ID of the quoted message, if any.
	ReplyTo string

	// Timestamp is when the transport received the message.
	Timestamp time.Time
}

// Key returns the conversation key used to correlate pending
// interactions with the message that resumes them.
func (m Inbound) Key() string {
	return m.Sender + "|" + m.Chat
}

// Ref identifies a message for reaction targeting.
type Ref struct {
	Chat      string
	MessageID string
}

// Ref returns a reference to this message.
func (m Inbound) Ref() Ref {
	return Ref{Chat: m.Chat, MessageID: m.ID}
}
