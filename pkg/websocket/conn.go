package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"rideshare/pkg/auth"
	"rideshare/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var (
	ErrClosed     = errors.New("connection closed")
	ErrBufferFull = errors.New("send buffer full")
)

// Conn is one authenticated client. Writes go through a buffered queue
// drained by writePump; Send never blocks.
type Conn struct {
	ws     *websocket.Conn
	log    logger.Logger
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	Claims *auth.AppClaims
}

func newConn(ws *websocket.Conn, log logger.Logger, claims *auth.AppClaims) *Conn {
	return &Conn{
		ws:     ws,
		log:    log.WithFields(logger.LogFields{"user_id": claims.UserID}),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		Claims: claims,
	}
}

// Send queues v as a JSON text frame.
func (c *Conn) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrBufferFull
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.log.Error("websocket_write_failed", err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Conn) write(kind int, payload []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(kind, payload)
}

// readPump discards client frames and keeps the read deadline fresh. It
// returns when the client goes away.
func (c *Conn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error("websocket_read_error", err)
			}
			return
		}
	}
}

// Close is idempotent. writePump sends the close frame and releases the
// socket.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} { return c.done }
