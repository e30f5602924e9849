package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeTimeout = 10 * time.Second
	inboundDepth = 64
)

// outboundFrame is the wire format for messages sent to the bridge.
type outboundFrame struct {
	ID             string       `json:"id"`
	Type           string       `json:"type"` // text, sticker
	ConversationID string       `json:"conversation_id"`
	Text           string       `json:"text,omitempty"`
	Sticker        []byte       `json:"sticker,omitempty"`
	Meta           *StickerMeta `json:"meta,omitempty"`
}

// Client is a websocket connection to the chat bridge. The bridge owns the
// messaging account, login and reconnection; the client only exchanges
// message frames with it.
type Client struct {
	url     string
	meta    StickerMeta
	logger  zerolog.Logger
	conn    *websocket.Conn
	writeMu sync.Mutex
	inbound chan InboundMessage
	done    chan struct{}
	stop    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// Config holds bridge client configuration
type Config struct {
	URL    string
	Meta   StickerMeta
	Logger zerolog.Logger
}

// Dial connects to the chat bridge and starts the read loop.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("bridge url is required")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bridge: %w", err)
	}

	c := &Client{
		url:     cfg.URL,
		meta:    cfg.Meta,
		logger:  cfg.Logger.With().Str("module", "gateway").Logger(),
		conn:    conn,
		inbound: make(chan InboundMessage, inboundDepth),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}

	go c.readLoop()

	c.logger.Info().Str("url", cfg.URL).Msg("Connected to chat bridge")

	return c, nil
}

// Inbound returns the channel of messages received from the bridge. The
// channel is closed when the connection ends.
func (c *Client) Inbound() <-chan InboundMessage {
	return c.inbound
}

// Done is closed when the read loop has finished.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.inbound)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.closeMu.Lock()
			closed := c.closed
			c.closeMu.Unlock()
			if !closed {
				c.logger.Warn().Err(err).Msg("Bridge read failed, connection lost")
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to parse inbound frame, skipping")
			continue
		}
		if msg.ConversationID == "" {
			c.logger.Debug().Msg("Inbound frame without conversation id, skipping")
			continue
		}

		// The consumer may have stopped draining inbound during shutdown;
		// never park on the send once Close has been called.
		select {
		case c.inbound <- msg:
		case <-c.stop:
			return
		}
	}
}

// SendText sends a plain text message to a conversation.
func (c *Client) SendText(ctx context.Context, conversationID, text string) error {
	return c.write(ctx, outboundFrame{
		ID:             uuid.NewString(),
		Type:           "text",
		ConversationID: conversationID,
		Text:           text,
	})
}

// SendSticker sends an encoded sticker image to a conversation.
func (c *Client) SendSticker(ctx context.Context, conversationID string, encoded []byte) error {
	if len(encoded) == 0 {
		return fmt.Errorf("sticker payload is empty")
	}
	meta := c.meta
	return c.write(ctx, outboundFrame{
		ID:             uuid.NewString(),
		Type:           "sticker",
		ConversationID: conversationID,
		Sticker:        encoded,
		Meta:           &meta,
	})
}

func (c *Client) write(ctx context.Context, frame outboundFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	c.logger.Debug().
		Str("type", frame.Type).
		Str("conversation_id", frame.ConversationID).
		Msg("Frame sent")

	return nil
}

// Close closes the bridge connection.
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	close(c.stop)
	c.closeMu.Unlock()

	c.writeMu.Lock()
	// Best effort close handshake before tearing down the socket.
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	return c.conn.Close()
}
