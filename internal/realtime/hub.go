// Package realtime pushes marketplace events to connected users over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event names
const (
	EventNewMessage    = "new_message"
	EventMessageSent   = "message_sent"
	EventMessageQueued = "message_queued"
	EventError         = "error"

	FrameSendMessage = "send_message"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
	maxFrame   = 16 * 1024
)

// Event is a frame pushed to a client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Frame is a frame received from a client.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// FrameHandler processes a client frame on behalf of userID.
type FrameHandler func(ctx context.Context, userID string, frame Frame) error

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks live connections per user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	onFrame  FrameHandler
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.Named("realtime"),
	}
}

// OnFrame registers the handler for client frames.
func (h *Hub) OnFrame(fn FrameHandler) {
	h.onFrame = fn
}

// Serve upgrades the request and runs the connection until it closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	h.readPump(r.Context(), c)
	return nil
}

// Emit sends evt to every connection of userID and returns how many received it.
// Connections whose buffer is full are dropped.
func (h *Hub) Emit(userID string, evt Event) int {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("encoding event", zap.String("type", evt.Type), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	var delivered int
	var slow []*client
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", zap.String("user", c.userID))
		h.unregister(c)
	}
	return delivered
}

// Connected returns the number of open connections for userID.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.logger.Debug("client connected", zap.String("user", c.userID))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.logger.Debug("client disconnected", zap.String("user", c.userID))
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read failed", zap.String("user", c.userID), zap.Error(err))
			}
			return
		}
		if h.onFrame == nil {
			continue
		}
		if err := h.onFrame(context.WithoutCancel(ctx), c.userID, frame); err != nil {
			h.Emit(c.userID, Event{Type: EventError, Data: map[string]string{"frame": frame.Type, "message": err.Error()}})
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
