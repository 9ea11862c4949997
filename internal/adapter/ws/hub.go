// Package ws implements the WebSocket adapter that streams fork lifecycle
// events to UI clients.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/service"
)

const defaultWriteTimeout = 5 * time.Second

// EventSource is the fan-out a connection subscribes to for its lifetime.
type EventSource interface {
	Subscribe(name string, h service.EventHandler) (unsubscribe func())
}

// conn wraps a single WebSocket connection.
type conn struct {
	ws          *websocket.Conn
	remote      string
	cancel      context.CancelFunc
	unsubscribe func()
}

// Hub manages all active WebSocket connections. Each connection is a
// separate fan-out subscriber, so a slow client only backs up its own queue.
type Hub struct {
	events       EventSource
	writeTimeout time.Duration

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// NewHub creates a new WebSocket hub fed by events.
func NewHub(events EventSource) *Hub {
	return &Hub{
		events:       events,
		writeTimeout: defaultWriteTimeout,
		conns:        make(map[*conn]struct{}),
	}
}

// HandleWS upgrades the request to a WebSocket and streams events until the
// client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The upgraded connection outlives the handler's request context.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{ws: ws, remote: r.RemoteAddr, cancel: cancel}

	if h.events != nil {
		c.unsubscribe = h.events.Subscribe("ws:"+r.RemoteAddr, func(_ context.Context, ev fork.Event) error {
			return h.send(ctx, c, eventMessage(ev))
		})
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr)

	go h.readLoop(ctx, c)
}

// readLoop answers pings and detects disconnects.
func (h *Hub) readLoop(ctx context.Context, c *conn) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}
		var in Message
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		if in.Type == TypePing {
			if err := h.send(ctx, c, Message{Type: TypePong}); err != nil {
				return
			}
		}
	}
}

// BroadcastEvent marshals payload and sends it to every client as
// {"type": eventType, "data": payload}.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Data: data})
}

// Broadcast sends msg to all connected clients.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := h.send(ctx, c, msg); err != nil {
			slog.Debug("websocket write failed", "remote", c.remote, "error", err)
		}
	}
}

// send writes one message with a bounded timeout. A failed write drops the
// connection.
func (h *Hub) send(ctx context.Context, c *conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal ws message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()

	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		h.remove(c)
		return err
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll disconnects every client with a going-away status.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		h.remove(c)
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.cancel()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	slog.Info("websocket disconnected", "remote", c.remote)
}
