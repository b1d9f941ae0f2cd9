package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client pumps one websocket: frames in go to the room, the outbox drains to
// the socket.
type Client struct {
	conn     *websocket.Conn
	out      *Outbox
	room     *Room
	id       ConnID
	maxFrame int64
	log      *zap.Logger
}

func (c *Client) read() {
	defer func() {
		c.room.Disconnect(c.id)
		c.out.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read", zap.Error(err))
			}
			return
		}
		if typ != websocket.BinaryMessage {
			c.log.Debug("ignoring non-binary frame", zap.Int("type", typ))
			continue
		}
		c.room.Receive(c.id, msg)
	}
}

func (c *Client) write() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.out.Ready():
			msgs, closed := c.out.Drain()
			for _, msg := range msgs {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
					c.log.Warn("websocket send", zap.Error(err))
					return
				}
			}
			if closed {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("websocket ping", zap.Error(err))
				return
			}
		}
	}
}
