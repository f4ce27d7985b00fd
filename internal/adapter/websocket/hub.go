package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/observability/telemetry"
	"github.com/seu-repo/handover-engine/internal/ports"
)

const sendBuffer = 256

// Conn is the subset of *websocket.Conn the hub needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type message struct {
	sellerID string
	payload  []byte
}

// Hub fans booking events out to dashboard clients. A client registered
// with a seller ID only receives that seller's events.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound events from the queue subscription.
	broadcast chan message

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	log *zap.Logger
	mu  sync.RWMutex
}

type Client struct {
	hub  *Hub
	conn Conn
	// Buffered channel of outbound messages.
	send     chan []byte
	sellerID string
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan message, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Run serves register, unregister and broadcast requests until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			telemetry.WebsocketClients.Inc()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.sellerID != "" && client.sellerID != msg.sellerID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					h.log.Warn("Dropping slow dashboard client", zap.String("seller_id", client.sellerID))
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	telemetry.WebsocketClients.Dec()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for delivery. Verification codes are stripped.
func (h *Hub) Broadcast(event domain.BookingEvent) {
	payload, err := json.Marshal(event.Public())
	if err != nil {
		h.log.Error("Failed to encode booking event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message{sellerID: event.SellerID, payload: payload}:
	case <-h.done:
	default:
		h.log.Warn("Dashboard broadcast buffer full, event dropped",
			zap.String("booking_id", event.BookingID),
			zap.String("type", string(event.Type)),
		)
	}
}

// Consume subscribes the hub to the booking event subject.
func (h *Hub) Consume(queue ports.MessageQueue, subject string) error {
	return queue.Subscribe(subject, func(data []byte) error {
		var event domain.BookingEvent
		if err := json.Unmarshal(data, &event); err != nil {
			h.log.Warn("Ignoring malformed booking event", zap.Error(err))
			return nil
		}
		h.Broadcast(event)
		return nil
	})
}

// Serve registers conn and blocks until the client disconnects or the hub stops.
func (h *Hub) Serve(conn Conn, sellerID string) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), sellerID: sellerID}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.readPump()
	client.writePump()
}

// Handler returns the Fiber routes for the live feed: an upgrade guard and
// the websocket endpoint reading ?seller_id=.
func (h *Hub) Handler() []fiber.Handler {
	return []fiber.Handler{
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
		websocket.New(func(c *websocket.Conn) {
			h.Serve(c, c.Query("seller_id"))
		}),
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()
	for {
		// Dashboards do not send anything; reading keeps control frames flowing.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	// The hub closed the channel.
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
