// Package ws implements the chat transport over a websocket gateway.
// The gateway speaks a small JSON frame protocol: the client
// authenticates with a token, receives "message" frames, and emits
// send.* frames for the three outbound verbs.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxbot-dev/voxbot/internal/message"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 20 // 1MB
)

// Client is a websocket chat transport.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	in   chan message.Inbound
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

// Dial connects to the gateway, authenticates, and starts the
// read/write pumps.
func Dial(url, token string, log *slog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	c := &Client{
		conn: conn,
		log:  log,
		in:   make(chan message.Inbound, 64),
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	if err := c.enqueue(frame{Type: frameAuth, ID: uuid.NewString(), Token: token}); err != nil {
		conn.Close()
		return nil, err
	}

	go c.readPump()
	go c.writePump()

	log.Info("gateway connected", "url", url)
	return c, nil
}

// Receive returns the inbound message stream.
func (c *Client) Receive() <-chan message.Inbound {
	return c.in
}

// SendText sends a text reply to a chat.
func (c *Client) SendText(target, text string) error {
	return c.enqueue(frame{
		Type:   frameText,
		ID:     uuid.NewString(),
		Target: target,
		Text:   text,
	})
}

// SendReaction attaches an emoji reaction to a message.
func (c *Client) SendReaction(ref message.Ref, emoji string) error {
	return c.enqueue(frame{
		Type:          frameReaction,
		ID:            uuid.NewString(),
		Target:        ref.Chat,
		TargetMessage: ref.MessageID,
		Emoji:         emoji,
	})
}

// SendMedia sends binary media with an optional caption.
func (c *Client) SendMedia(target string, media []byte, caption string) error {
	return c.enqueue(frame{
		Type:    frameMedia,
		ID:      uuid.NewString(),
		Target:  target,
		Media:   media,
		Caption: caption,
	})
}

// Close tears down the connection and closes the receive channel.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

// enqueue marshals a frame onto the send pump.
func (c *Client) enqueue(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		c.log.Warn("send buffer full, dropping frame", "type", f.Type)
		return ErrBufferFull
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		close(c.in)
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("gateway disconnected", "err", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn("bad frame from gateway", "err", err)
			continue
		}
		if f.Type != frameMessage {
			continue
		}

		msg := message.Inbound{
			ID:        f.ID,
			Sender:    f.Sender,
			Chat:      f.Chat,
			Body:      f.Body,
			ReplyTo:   f.ReplyTo,
			Timestamp: f.Timestamp,
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}

		select {
		case c.in <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
