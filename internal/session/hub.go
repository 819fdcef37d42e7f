// ABOUTME: Websocket hub accepting client sessions and pumping frames
// ABOUTME: Authenticates before upgrade, cleans up ownership on disconnect

package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/convo-relay/internal/auth"
	"github.com/2389/convo-relay/internal/conversation"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// side gives up; pings go out at pingPeriod to keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// eventBufferSize is the per-connection buffer for routed events.
	eventBufferSize = 64

	// ackBufferSize is the per-connection buffer for command acks.
	ackBufferSize = 16
)

// Hub upgrades authenticated HTTP requests into websocket sessions and
// owns their lifecycle. The credential check runs before the upgrade, so a
// rejected client never touches room or registry state.
type Hub struct {
	verifier auth.TokenVerifier
	manager  *Manager
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]*Conn
}

// NewHub creates a session hub. allowedOrigins lists the origins permitted
// to open sessions; "*" permits any. Pass nil logger for default.
func NewHub(verifier auth.TokenVerifier, manager *Manager, allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	allowAny := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAny = true
		}
		allowed[o] = true
	}
	return &Hub{
		verifier: verifier,
		manager:  manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAny {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger.With("component", "session-hub"),
		conns:  make(map[string]*Conn),
	}
}

// ServeHTTP handles a websocket connect. The session token comes from the
// "token" query parameter or the Authorization header.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	if _, err := h.verifier.Verify(token); err != nil {
		h.logger.Info("rejected unauthenticated session", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"authentication failed"}`))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.New().String()
	conn := &Conn{
		id:     id,
		ws:     ws,
		events: make(chan *conversation.Event, eventBufferSize),
		acks:   make(chan *AckFrame, ackBufferSize),
		done:   make(chan struct{}),
		hub:    h,
		logger: h.logger.With("conn_id", id),
	}

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()

	h.logger.Info("session connected", "conn_id", conn.id)

	go conn.writePump()
	conn.readPump(r.Context())
}

// remove drops a connection from the hub's table.
func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// Close tears down every active session.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// ConnCount returns the number of active sessions.
func (h *Hub) ConnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Conn is one live client session. The read pump handles client commands
// on the request goroutine; the write pump serializes acks, routed events,
// and pings onto the socket from its own goroutine.
type Conn struct {
	id     string
	ws     *websocket.Conn
	events chan *conversation.Event
	acks   chan *AckFrame
	done   chan struct{}
	hub    *Hub
	logger *slog.Logger

	closeOnce sync.Once
}

// readPump processes client frames until the connection drops, then runs
// disconnect cleanup.
func (c *Conn) readPump(ctx context.Context) {
	defer func() {
		c.close()
		c.hub.remove(c.id)
		if err := c.hub.manager.Disconnect(context.WithoutCancel(ctx), c.id); err != nil {
			c.logger.Error("disconnect cleanup failed", "error", err)
		}
		c.logger.Info("session disconnected")
	}()

	c.ws.SetReadLimit(1 << 20)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("session read error", "error", err)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("dropping unparseable client frame", "error", err)
			continue
		}
		c.handleFrame(ctx, &frame)
	}
}

// handleFrame dispatches one client command and queues its ack.
func (c *Conn) handleFrame(ctx context.Context, frame *ClientFrame) {
	switch frame.Event {
	case EventJoinConversation:
		name, err := c.hub.manager.Join(ctx, c.id, c.events, frame.Data)
		c.sendAck(&AckFrame{Event: EventJoinConversation, OK: err == nil, ConversationName: name})
		if err != nil {
			c.logger.Error("join failed", "conversation", name, "error", err)
		}
	case EventLeaveConversation:
		name, err := c.hub.manager.Leave(ctx, c.id, frame.Data)
		c.sendAck(&AckFrame{Event: EventLeaveConversation, OK: err == nil, ConversationName: name})
		if err != nil {
			c.logger.Error("leave failed", "conversation", name, "error", err)
		}
	default:
		c.logger.Warn("unknown client event", "event", frame.Event)
	}
}

// sendAck queues an ack without blocking the read pump.
func (c *Conn) sendAck(ack *AckFrame) {
	select {
	case c.acks <- ack:
	default:
		c.logger.Warn("ack dropped, ack buffer full", "event", ack.Event)
	}
}

// writePump serializes all socket writes: acks, routed events, pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case ack := <-c.acks:
			if err := c.writeJSON(ack); err != nil {
				return
			}
		case ev := <-c.events:
			if err := c.writeJSON(&PushFrame{Event: ev.Name, Data: ev.Payload}); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// writeJSON writes one frame under the write deadline.
func (c *Conn) writeJSON(v any) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// close signals the write pump to shut the socket down.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
