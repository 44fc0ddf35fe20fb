package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 5 * time.Second
	sendQueueDepth = 100
)

// Connection wraps a gorilla websocket connection behind the narrow
// send-bytes capability the coordinator needs. All writes funnel
// through a single writer goroutine; gorilla connections do not allow
// concurrent writers.
type Connection struct {
	id          string
	userID      string
	role        string
	sessionCode string

	conn      *websocket.Conn
	writeCh   chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded websocket connection. Identity fields
// are fixed at construction; the gateway validates them before the
// upgrade ever happens.
func NewConnection(conn *websocket.Conn, userID, role, sessionCode string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:          uuid.New().String(),
		userID:      userID,
		role:        role,
		sessionCode: sessionCode,
		conn:        conn,
		writeCh:     make(chan []byte, sendQueueDepth),
		ctx:         ctx,
		cancel:      cancel,
	}

	go c.writeLoop()

	return c
}

// writeLoop is the single writer for the underlying connection.
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.cancel()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// ID returns the unique identifier of this connection instance.
func (c *Connection) ID() string { return c.id }

// UserID returns the identity supplied at upgrade time.
func (c *Connection) UserID() string { return c.userID }

// Role returns the client role.
func (c *Connection) Role() string { return c.role }

// SessionCode returns the session this connection joined.
func (c *Connection) SessionCode() string { return c.sessionCode }

// Send queues pre-serialized bytes for delivery. Returns an error when
// the connection is closed or the send buffer stays full past the write
// timeout; the broadcast fan-out treats either as a dead connection.
func (c *Connection) Send(data []byte) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// IsOpen reports whether the connection can still accept sends.
func (c *Connection) IsOpen() bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
		return true
	}
}

// Close tears down the transport. Idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}
