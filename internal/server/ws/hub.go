// Package ws bridges the listing feed to WebSocket clients: every change to
// the listing set pushes a fresh capped snapshot to all connected clients.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brandlab/exchange/internal/domain"
	"github.com/brandlab/exchange/internal/feed"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message. Clients
	// only ever send control frames; data frames are ignored.
	maxMessageSize = 512

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 8
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// envelope is the frame pushed to clients. Listing frames carry the snapshot
// in Payload; error frames carry a message in Error instead.
type envelope struct {
	Type    string           `json:"type"`
	Payload []domain.Listing `json:"payload"`
	Error   string           `json:"error,omitempty"`
}

// Hub manages connected WebSocket clients and fans the listing feed's
// snapshots out to them. Slow clients have messages dropped rather than
// stalling the hub.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	// done closes when Run exits, so connection goroutines never block on
	// register/unregister sends the loop will no longer receive.
	done   chan struct{}
	feed   *feed.Feed
	mu     sync.RWMutex
	latest []byte
	logger *slog.Logger
}

// NewHub creates a hub that bridges the listing feed to WebSocket clients.
func NewHub(f *feed.Feed, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		feed:       f,
		logger:     logger,
	}
}

// Run starts the hub's main event loop. It subscribes to the listing feed
// and handles client registration, unregistration, and snapshot fan-out.
// The loop exits when the provided context is cancelled. A terminal feed
// error is returned rather than swallowed: with the stream dead the server
// must not keep accepting websocket clients nobody will serve, so the error
// propagates and shuts the app down.
func (h *Hub) Run(ctx context.Context) error {
	sub, err := h.feed.Subscribe(ctx, domain.FeedCap)
	if err != nil {
		close(h.done)
		return err
	}
	defer close(h.done)
	defer sub.Close()

	snapshots := sub.Snapshots()
	errs := sub.Errs()
	var feedErr error

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()

		case listings, ok := <-snapshots:
			if !ok {
				return h.terminate(ctx, errs, feedErr)
			}
			data, err := json.Marshal(envelope{Type: "listings", Payload: listings})
			if err != nil {
				h.logger.Error("ws: marshal snapshot failed", slog.String("error", err.Error()))
				continue
			}
			h.mu.Lock()
			h.latest = data
			h.mu.Unlock()
			h.fanOut(data)

		case err, ok := <-errs:
			if !ok {
				// Closed alongside the snapshot channel; stop selecting on
				// it so the zero value is never treated as an error.
				errs = nil
				continue
			}
			feedErr = err
			h.logger.Error("ws: feed error", slog.String("error", err.Error()))

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			latest := h.latest
			h.mu.Unlock()
			if latest != nil {
				select {
				case c.send <- latest:
				default:
				}
			}
			h.logger.Info("ws: client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)
		}
	}
}

// terminate ends the loop after the snapshot channel closes: it drains a
// late feed error, notifies clients the stream broke, closes them, and
// reports why the stream ended. The error frame goes out before the close so
// clients can prompt a reconnect instead of showing a stale snapshot as
// current.
func (h *Hub) terminate(ctx context.Context, errs <-chan error, feedErr error) error {
	if feedErr == nil && errs != nil {
		select {
		case err, ok := <-errs:
			if ok {
				feedErr = err
			}
		default:
		}
	}
	if ctx.Err() == nil {
		if data, err := json.Marshal(envelope{Type: "error", Error: "live feed interrupted"}); err == nil {
			h.fanOut(data)
		}
	}
	h.closeAll()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if feedErr == nil {
		feedErr = errors.New("stream closed")
	}
	return fmt.Errorf("ws: listing feed terminated: %w", feedErr)
}

// fanOut pushes one frame to every client, dropping it for clients whose
// send buffer is full.
func (h *Hub) fanOut(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("ws: dropping snapshot for slow client")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump drains the WebSocket connection so close and pong frames are
// processed. Incoming data frames are ignored; the stream is one-way.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// writePump pumps frames from the hub to the WebSocket connection and sends
// periodic ping frames for keepalive.
func (c *client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
