package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	outboxSize   = 128
)

// ErrConnectionClosed is returned by Send after Close.
var ErrConnectionClosed = errors.New("connection closed")

// Connection wraps one client's websocket. All writes funnel through the
// outbox channel so the write loop is the only goroutine touching the socket;
// the outbox itself is never closed, shutdown is signalled via done.
type Connection struct {
	ID       string
	UserName string
	IsAdmin  bool

	ws      *websocket.Conn
	outbox  chan []byte
	done    chan struct{}
	closing sync.Once
}

// NewConnection constructs a Connection for the given user. ws may be nil in
// tests that never start the write loop.
func NewConnection(userName string, isAdmin bool, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		UserName: userName,
		IsAdmin:  isAdmin,
		ws:       ws,
		outbox:   make(chan []byte, outboxSize),
		done:     make(chan struct{}),
	}
}

// Start launches the write loop. Call it exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. A full outbox means the client stopped
// reading; the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.outbox <- payload:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("send buffer exceeded")
	}
}

// Close signals the write loop to stop and closes the socket. Safe to call
// from any goroutine, any number of times; pending Sends fail instead of
// panicking because the outbox stays open.
func (c *Connection) Close(code int, reason string) {
	c.closing.Do(func() {
		close(c.done)
		if c.ws == nil {
			return
		}
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.outbox:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
