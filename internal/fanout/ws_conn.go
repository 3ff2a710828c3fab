package fanout

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WSConn implements the Conn interface over a gorilla WebSocket. The socket
// is push-only: clients send messages over HTTP, events come back here.
type WSConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	open    bool
	onClose func(*WSConn)
}

// NewWSConn wraps an upgraded socket. onClose is the close notification
// callback; the handler uses it to leave the room the connection joined.
func NewWSConn(id string, conn *websocket.Conn, onClose func(*WSConn)) *WSConn {
	return &WSConn{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, 256),
		open:    true,
		onClose: onClose,
	}
}

func (c *WSConn) ID() string { return c.id }

func (c *WSConn) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Enqueue pushes serialized bytes to the write pump without blocking.
func (c *WSConn) Enqueue(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.open {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Run starts the pumps for the WebSocket.
func (c *WSConn) Run() {
	go c.writePump()
	go c.readPump()
}

// Close marks the connection closed and shuts the send channel, which stops
// the write pump. Safe to call more than once.
func (c *WSConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	c.open = false
	close(c.send)
}

// readPump only watches for the peer closing the socket; inbound frames are
// discarded. Its exit fires the close notification.
func (c *WSConn) readPump() {
	defer func() {
		if c.onClose != nil {
			c.onClose(c)
		}
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("fanout: read error on connection %s: %v", c.id, err)
			}
			break
		}
	}
}

// writePump drains the send channel into the socket and keeps the
// connection alive with pings.
func (c *WSConn) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by Close; tell the peer we are done.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Drain whatever queued up behind this event.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
