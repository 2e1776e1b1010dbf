// Package hub keeps the registry of connected observers and fans status
// events out to the ones whose subscription matches.
package hub

import (
	"encoding/json"
	"sync"

	"mon-resto/internal/mylogger"
)

// Subscription is the observer-supplied filter. An empty OrderID means
// "every order" (kitchen and admin boards); a set OrderID narrows the
// stream to one order (customer tracking).
type Subscription struct {
	OrderID string `json:"order_id,omitempty"`
	Role    string `json:"role,omitempty"`
	// Muted marks a client that unsubscribed but kept the connection.
	Muted bool `json:"-"`
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	mylog   mylogger.Logger
}

type SubscribeMessage struct {
	Action  string `json:"action"`
	OrderID string `json:"order_id,omitempty"`
	Role    string `json:"role,omitempty"`
}

func New(mylog mylogger.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		mylog:   mylog,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers payload to every client whose subscription matches
// the event's order. Slow clients are skipped rather than blocking the
// pump; they catch up through polling.
func (h *Hub) Broadcast(payload []byte, orderID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client.Subscription, orderID) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.mylog.Action("broadcast_drop").Warn("Dropped message for slow client", "client_id", client.ID)
		}
	}
}

func match(sub Subscription, orderID string) bool {
	if sub.Muted {
		return false
	}
	return sub.OrderID == "" || sub.OrderID == orderID
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
