package publisher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/model"
)

var errHubStopped = errors.New("hub stopped")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub manages WebSocket chart clients and broadcasts signal events to them.
// A newly connected client immediately receives the last broadcast message.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	last       []byte
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewHub creates a new Hub. With no allowed origins every origin is accepted.
func NewHub(log zerolog.Logger, allowedOrigins ...string) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "hub").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Run starts the hub's event loop. It returns when ctx is cancelled or Close is called.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer func() {
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.quit:
			return

		case client := <-h.register:
			h.clients[client] = true
			if h.last != nil {
				select {
				case client.send <- h.last:
				default:
				}
			}
			h.log.Debug().Int("clients", len(h.clients)).Msg("websocket client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.log.Debug().Int("clients", len(h.clients)).Msg("websocket client unregistered")

		case message := <-h.broadcast:
			h.last = message
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop it rather than stall the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Publish broadcasts the event as JSON to all connected clients.
func (h *Hub) Publish(ctx context.Context, evt *model.SignalEvent) error {
	msg, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	select {
	case <-h.quit:
		return errHubStopped
	default:
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.quit:
		return errHubStopped
	case <-h.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the event loop.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.quit) })
	return nil
}

// ServeWs upgrades the request and attaches the peer to the hub.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Client is one connected WebSocket peer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump drains the peer so control frames are processed; chart clients do not send data.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
