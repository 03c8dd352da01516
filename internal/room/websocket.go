package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FATTY-BAMBA/ai-interview-coach/internal/agent"
)

// message is the wire format exchanged with the room gateway.
// Types: "join", "item", "speak", "bye", "error".
type message struct {
	Type              string `json:"type"`
	Room              string `json:"room,omitempty"`
	Role              string `json:"role,omitempty"`
	Text              string `json:"text,omitempty"`
	Voice             string `json:"voice,omitempty"`
	AllowInterruption bool   `json:"allowInterruption,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Client connects the agent to one room over WebSocket. It implements
// agent.Transport: incoming "item" frames become conversation items, and
// Speak sends a synthesis request. Because the gateway does not echo agent
// speech back, Speak also emits a local assistant item so the orchestrator
// sees one item stream for both sides of the conversation.
type Client struct {
	url      string
	token    string
	roomName string

	conn    *websocket.Conn
	items   chan agent.Item
	stopCh  chan struct{}
	writeMu sync.Mutex

	mu           sync.Mutex
	connected    bool
	streamClosed bool
	voice        string
}

// NewClient prepares a room client; Connect performs the dial.
func NewClient(wsURL, token, roomName, voice string) *Client {
	return &Client{
		url:      wsURL,
		token:    token,
		roomName: roomName,
		voice:    voice,
		items:    make(chan agent.Item, 100),
		stopCh:   make(chan struct{}),
	}
}

// Connect dials the gateway, joins the room, and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	if c.url == "" {
		return fmt.Errorf("room gateway URL is empty")
	}

	headers := http.Header{}
	if c.token != "" {
		headers.Set("Authorization", "Bearer "+c.token)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, headers)
	if err != nil {
		return fmt.Errorf("failed to dial room gateway: %v", err)
	}
	c.conn = conn

	if err := c.writeJSON(message{Type: "join", Room: c.roomName}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to join room %s: %v", c.roomName, err)
	}

	c.connected = true
	go c.readLoop()
	return nil
}

// Items delivers conversation items until the connection closes.
func (c *Client) Items() <-chan agent.Item { return c.items }

// Speak requests synthesis of text in the room. The local assistant item is
// emitted only after the gateway accepted the frame.
func (c *Client) Speak(ctx context.Context, text string, allowInterruption bool) error {
	c.mu.Lock()
	connected, closed, voice := c.connected, c.streamClosed, c.voice
	c.mu.Unlock()
	if !connected {
		return fmt.Errorf("room client not connected")
	}
	if closed {
		return fmt.Errorf("room stream closed by gateway")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.writeJSON(message{
		Type:              "speak",
		Room:              c.roomName,
		Text:              text,
		Voice:             voice,
		AllowInterruption: allowInterruption,
	})
	if err != nil {
		return fmt.Errorf("failed to send speak request: %v", err)
	}
	// The gateway may have ended the stream between the write and here;
	// readLoop closes the channel under mu, so send under the same lock.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streamClosed {
		return fmt.Errorf("room stream closed by gateway")
	}
	select {
	case c.items <- agent.Item{Role: "assistant", Text: text}:
	default:
		log.Printf("room %s: item buffer full, dropping local assistant item", c.roomName)
	}
	return nil
}

// SetVoice switches the synthesis voice for subsequent Speak calls.
func (c *Client) SetVoice(voice string) {
	c.mu.Lock()
	c.voice = voice
	c.mu.Unlock()
}

// Close says goodbye and tears down the connection. Safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	close(c.stopCh)
	_ = c.writeJSON(message{Type: "bye", Room: c.roomName})
	return c.conn.Close()
}

func (c *Client) writeJSON(m message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(m)
}

// readLoop pumps gateway frames into the item channel. Malformed frames are
// skipped; the loop exits when the connection drops or Close is called.
func (c *Client) readLoop() {
	// Closing happens under mu so Speak can never race its local assistant
	// item against the close.
	defer func() {
		c.mu.Lock()
		c.streamClosed = true
		close(c.items)
		c.mu.Unlock()
	}()
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
			default:
				log.Printf("room %s: read error: %v", c.roomName, err)
			}
			return
		}
		var m message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("room %s: skipping malformed frame: %v", c.roomName, err)
			continue
		}
		switch m.Type {
		case "item":
			select {
			case c.items <- agent.Item{Role: m.Role, Text: m.Text}:
			default:
				log.Printf("room %s: item buffer full, dropping %s item", c.roomName, m.Role)
			}
		case "error":
			log.Printf("room %s: gateway error: %s", c.roomName, m.Error)
		case "bye":
			return
		}
	}
}
