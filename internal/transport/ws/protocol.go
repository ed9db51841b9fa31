package ws

import "time"

// Frame types exchanged with the gateway.
const (
	frameAuth     = "auth"
	frameMessage  = "message"
	frameText     = "send.text"
	frameReaction = "send.reaction"
	frameMedia    = "send.media"
)

// frame is the wire envelope. Exactly one payload section is set,
// selected by Type.
type frame struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// auth
	Token string `json:"token,omitempty"`

	// message (inbound)
	Sender    string    `json:"sender,omitempty"`
	Chat      string    `json:"chat,omitempty"`
	Body      string    `json:"body,omitempty"`
	ReplyTo   string    `json:"replyTo,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	// send.text / send.media (outbound)
	Target  string `json:"target,omitempty"`
	Text    string `json:"text,omitempty"`
	Media   []byte `json:"media,omitempty"`
	Caption string `json:"caption,omitempty"`

	// send.reaction (outbound)
	TargetMessage string `json:"targetMessage,omitempty"`
	Emoji         string `json:"emoji,omitempty"`
}
