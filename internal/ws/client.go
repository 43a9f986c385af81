package ws

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Application close codes, sent before tearing down a rejected connection.
const (
	CloseUnauthenticated = 4401
	CloseForbidden       = 4403
	CloseNotFound        = 4404
)

// Client wraps a gorilla connection with a single-writer lock so hub
// broadcasts and keepalive frames never interleave on the wire.
type Client struct {
	ID   uuid.UUID
	sock *websocket.Conn
	mu   sync.Mutex
	log  *logger.Logger
}

func NewClient(sock *websocket.Conn, log *logger.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:   id,
		sock: sock,
		log:  log.With("clientID", id.String()),
	}
}

func (c *Client) Push(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
	return c.sock.WriteJSON(ev)
}

func (c *Client) Close() error {
	return c.sock.Close()
}

// CloseWithStatus sends a close control frame carrying an application status
// code, then closes the transport.
func (c *Client) CloseWithStatus(code int, reason string) {
	c.mu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.sock.WriteMessage(websocket.CloseMessage, msg)
	c.mu.Unlock()
	_ = c.sock.Close()
}

// ReadLoop blocks until the peer goes away. Inbound traffic is keepalive
// only: text "ping" frames get a "pong" reply, everything else is ignored.
// It also drives the server-side ping cycle tied to the pong deadline.
func (c *Client) ReadLoop() {
	done := make(chan struct{})
	defer close(done)

	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.pingLoop(done)

	for {
		msgType, payload, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Connection closed unexpectedly", "error", err)
			}
			return
		}
		_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
		if msgType == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(payload)), "ping") {
			if err := c.Push(Event{Event: "pong"}); err != nil {
				return
			}
		}
	}
}

func (c *Client) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.sock.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
