package websocket

import (
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/frontierstation/damagecast/pkg/core"
)

const (
	sendChSize     = 256
	maxMessageSize = 4096
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// connection is one client session with a single write goroutine.
type connection struct {
	handle    core.Handle
	entity    core.EntityID
	conn      *ws.Conn
	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeWait time.Duration

	logger *slog.Logger
}

func newConnection(handle core.Handle, entity core.EntityID, conn *ws.Conn, writeWait time.Duration, logger *slog.Logger) *connection {
	return &connection{
		handle:    handle,
		entity:    entity,
		conn:      conn,
		sendCh:    make(chan []byte, sendChSize),
		done:      make(chan struct{}),
		writeWait: writeWait,
		logger:    logger.With("handle", handle, "entity", entity),
	}
}

// writeLoop drains sendCh and writes messages to the socket, pinging the
// client between messages. It returns on error or shutdown and closes the
// socket, which also ends readLoop.
func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			_ = c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				c.close()
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.logger.Debug("WebSocket ping failed", "error", err)
				c.close()
				return
			}
		}
	}
}

// readLoop discards client frames and returns when the client goes away.
// Clients never send commands; reading keeps control frames flowing.
func (c *connection) readLoop() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				c.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
	}
}

// send pushes data to the write loop. Non-blocking; drops if the client is
// too slow or already gone.
func (c *connection) send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- data:
		return true
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
		return false
	}
}

// close stops the write loop, which sends a close frame on its way out.
func (c *connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
