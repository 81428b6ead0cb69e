package realtime

import (
	"log"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// conn is the slice of websocket behavior the hub uses; websocket.Conn
// satisfies it.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Hub is the in-process realtime channel: a registry of each user's open
// websocket connections. Publish is fire-and-forget; a user with no open
// connection is a normal case.
type Hub struct {
	mu    sync.Mutex
	conns map[uint][]conn
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[uint][]conn)}
}

// Publish sends the payload to every open connection of the user. No open
// connection is a no-op, not an error. Individual write failures drop that
// connection and do not fail the publish.
func (h *Hub) Publish(userID uint, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	alive := h.conns[userID][:0]
	for _, c := range h.conns[userID] {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("[REALTIME] Dropping connection for user %d: %v", userID, err)
			c.Close()
			continue
		}
		alive = append(alive, c)
	}
	if len(alive) == 0 {
		delete(h.conns, userID)
	} else {
		h.conns[userID] = alive
	}
	return nil
}

// register adds a connection for the user.
func (h *Hub) register(userID uint, c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = append(h.conns[userID], c)
}

// unregister removes a connection for the user.
func (h *Hub) unregister(userID uint, c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	remaining := h.conns[userID][:0]
	for _, existing := range h.conns[userID] {
		if existing != c {
			remaining = append(remaining, existing)
		}
	}
	if len(remaining) == 0 {
		delete(h.conns, userID)
	} else {
		h.conns[userID] = remaining
	}
}

// Upgrade gates the websocket route: non-websocket requests get 426.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket handler for the hub. It expects the JWT
// middleware to have stored the user ID in Locals.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID, ok := c.Locals("userId").(uint)
		if !ok {
			c.Close()
			return
		}

		h.register(userID, c)
		defer h.unregister(userID, c)

		// Hold the connection open; inbound messages are ignored.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
}
