package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"rideshare/pkg/auth"
	"rideshare/pkg/logger"

	"github.com/gorilla/websocket"
)

const authTime = 5 * time.Second

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks one connection per user. A new connection for a user replaces
// the previous one.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	jwt   *auth.JWTManager
	log   logger.Logger
}

func NewHub(jwt *auth.JWTManager, log logger.Logger) *Hub {
	return &Hub{
		conns: make(map[string]*Conn),
		jwt:   jwt,
		log:   log.WithFields(logger.LogFields{"component": "websocket"}),
	}
}

// ServeHTTP upgrades the request and expects {"type":"auth","token":"..."}
// as the first frame within authTime.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket_upgrade_failed", err)
		return
	}

	claims, err := h.authenticate(ws)
	if err != nil {
		h.log.Error("websocket_auth_failed", err)
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		ws.WriteJSON(errorMessage{Type: "error", Message: err.Error()})
		ws.Close()
		return
	}

	conn := newConn(ws, h.log, claims)
	h.add(conn)
	go conn.writePump()
	go func() {
		conn.readPump()
		h.remove(conn)
	}()
}

func (h *Hub) authenticate(ws *websocket.Conn) (*auth.AppClaims, error) {
	ws.SetReadDeadline(time.Now().Add(authTime))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return nil, errors.New("authentication timeout")
	}
	ws.SetReadDeadline(time.Time{})

	var msg authMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "auth" || msg.Token == "" {
		return nil, errors.New("invalid authentication message")
	}
	claims, err := h.jwt.ParseToken(strings.TrimPrefix(msg.Token, "Bearer "))
	if err != nil {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	prev := h.conns[c.Claims.UserID]
	h.conns[c.Claims.UserID] = c
	total := len(h.conns)
	h.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	h.log.WithFields(logger.LogFields{
		"user_id": c.Claims.UserID,
		"role":    c.Claims.Role,
		"total":   total,
	}).Info("websocket_connected", "Client authenticated")
}

// remove drops c unless it was already replaced.
func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	if h.conns[c.Claims.UserID] == c {
		delete(h.conns, c.Claims.UserID)
	}
	h.mu.Unlock()
}

// SendToUser queues message for userID. It returns false when the user has
// no open connection.
func (h *Hub) SendToUser(userID string, message interface{}) (bool, error) {
	h.mu.RLock()
	c, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if err := c.Send(message); err != nil {
		if errors.Is(err, ErrClosed) {
			h.remove(c)
			return false, nil
		}
		return true, err
	}
	return true, nil
}

// IsConnected reports whether userID has an open connection.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

// Close ends every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*Conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
