package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"stockflow/internal/events"
	"stockflow/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const broadcastBuffer = 256

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	// closed once Run returns
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			logger.Logger.Debug().Int("clients", h.ClientCount()).Msg("websocket client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Notify queues event for every connected client. A full queue drops the
// event instead of stalling the caller.
func (h *Hub) Notify(ctx context.Context, event events.StockEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stock event: %w", err)
	}
	select {
	case h.Broadcast <- payload:
		return nil
	default:
		logger.Warn(ctx).Str("event_id", event.EventID).Msg("websocket broadcast queue full, event dropped")
		return nil
	}
}

// Upgrade rejects non-websocket requests on the hub route.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Handler registers each connection with the hub for its lifetime.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		if !h.join(c) {
			c.Close()
			return
		}
		defer h.leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}

// join registers c, reporting false once the hub has stopped.
func (h *Hub) join(c *websocket.Conn) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *websocket.Conn) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}
