// Package ws serves the live channel over WebSocket.
//
// Every connection gets a read loop (running in the HTTP handler goroutine,
// feeding the relay) and a write loop (draining a buffered send channel and
// keeping the connection alive with pings).
package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oggyb/muzz-match/internal/relay"
)

const (
	sendBuffer     = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 64 << 10
)

var (
	errClosed     = errors.New("connection closed")
	errBufferFull = errors.New("send buffer full")
)

// Handler upgrades HTTP requests and pumps frames between the socket and
// the relay.
type Handler struct {
	relay    *relay.Relay
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler. An empty allowedOrigins, or one
// containing "*", accepts any origin.
func NewHandler(r *relay.Relay, logger *slog.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		relay:  r,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := newClient(ws, h.logger)
	h.logger.Debug("websocket connected", "conn", c.id, "remote", r.RemoteAddr)

	go c.writeLoop()
	c.readLoop(func(ev relay.Event) { h.relay.Handle(r.Context(), c, ev) }, func(reason string) { h.relay.Reject(c, reason) })

	h.relay.Disconnect(c)
	_ = c.Close()
	h.logger.Debug("websocket disconnected", "conn", c.id)
}

// client is one WebSocket connection. It implements relay.Conn.
type client struct {
	id     string
	ws     *websocket.Conn
	send   chan relay.Event
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newClient(ws *websocket.Conn, logger *slog.Logger) *client {
	return &client{
		id:     uuid.NewString(),
		ws:     ws,
		send:   make(chan relay.Event, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *client) ID() string { return c.id }

// Send queues ev without blocking.
func (c *client) Send(ev relay.Event) error {
	select {
	case <-c.done:
		return errClosed
	default:
	}
	select {
	case c.send <- ev:
		return nil
	case <-c.done:
		return errClosed
	default:
		return errBufferFull
	}
}

// Close stops the write loop, which closes the socket.
func (c *client) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *client) readLoop(handle func(relay.Event), reject func(reason string)) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket read failed", "conn", c.id, "err", err)
			}
			return
		}

		var ev relay.Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Event == "" {
			reject("frame must be a JSON object with an event field")
			continue
		}
		handle(ev)
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		_ = c.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				c.logger.Debug("websocket write failed", "conn", c.id, "err", err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
				time.Now().Add(writeWait))
			return
		}
	}
}
