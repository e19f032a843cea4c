package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/service"
	"github.com/sentinelshop/storefront-api/pkg/logger"
)

const (
	// Inbound messages accepted per client per second.
	maxMessagesPerSecond = 10

	EventOrderConfirmed = "order_confirmed"
	EventPong           = "pong"
)

// ClientMessage is sent by browsers; only "ping" is understood.
type ClientMessage struct {
	Type string `json:"type"`
}

// Event is pushed to every connection subscribed to a cart session.
type Event struct {
	Type  string                `json:"type"`
	Order *service.OrderSummary `json:"order,omitempty"`
}

// Client is one websocket connection bound to a cart session.
type Client struct {
	Hub       *Hub
	Conn      *Conn
	SessionID uint
	Send      chan []byte

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

func NewClient(hub *Hub, conn *Conn, sessionID uint) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, 16),
	}
}

// Hub fans order events out to the connections of each cart session. A
// session can have several tabs open, so clients are kept per session.
type Hub struct {
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage goes to every connection of SessionID, or only to Client
// when set.
type BroadcastMessage struct {
	SessionID uint
	Client    *Client
	Message   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			total := len(h.clients[client.SessionID])
			h.mu.Unlock()
			logger.Debug("WebSocket client registered", map[string]interface{}{
				"session_id":  client.SessionID,
				"connections": total,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients[message.SessionID] {
				if message.Client != nil && message.Client != client {
					continue
				}
				select {
				case client.Send <- message.Message:
				default:
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"session_id": message.SessionID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	kept := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}
	if len(kept) == 0 {
		delete(h.clients, client.SessionID)
	} else {
		h.clients[client.SessionID] = kept
	}
	close(client.Send)

	logger.Debug("WebSocket client unregistered", map[string]interface{}{
		"session_id":  client.SessionID,
		"connections": len(kept),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, list := range h.clients {
		for _, c := range list {
			close(c.Send)
		}
		delete(h.clients, id)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribers returns the number of open connections for a session.
func (h *Hub) Subscribers(sessionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// SendToSession queues message for every connection of sessionID. Messages
// are dropped when the broadcast queue is full.
func (h *Hub) SendToSession(sessionID uint, message interface{}) error {
	return h.enqueue(&BroadcastMessage{SessionID: sessionID}, message)
}

// SendToClient queues message for one connection. It is dropped if the
// client has unregistered by the time it is delivered.
func (h *Hub) SendToClient(client *Client, message interface{}) error {
	return h.enqueue(&BroadcastMessage{SessionID: client.SessionID, Client: client}, message)
}

func (h *Hub) enqueue(msg *BroadcastMessage, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal message", err, nil)
		return err
	}
	msg.Message = data

	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"session_id": msg.SessionID,
		})
	}
	return nil
}

// OrderConfirmed implements service.OrderNotifier.
func (h *Hub) OrderConfirmed(sessionID uint, summary *service.OrderSummary) {
	if err := h.SendToSession(sessionID, Event{Type: EventOrderConfirmed, Order: summary}); err != nil {
		logger.Warn("Failed to publish order confirmation", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// HandleClientMessage answers pings; anything else is ignored.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"session_id": client.SessionID,
			"count":      count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"session_id": client.SessionID,
			"error":      err.Error(),
		})
		return
	}

	// Send is owned by the Run loop, so replies go through the broadcast queue.
	if msg.Type == "ping" {
		_ = h.SendToClient(client, Event{Type: EventPong})
	}
}

var _ service.OrderNotifier = (*Hub)(nil)
