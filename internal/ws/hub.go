package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

type Audience string

const (
	AudienceNone     Audience = ""
	AudienceCustomer Audience = "customer"
	AudienceKitchen  Audience = "kitchen"
)

// Hub is the process-scoped session registry. Connections join an audience via
// the register message; the registry is in-memory only and resets on restart.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]Audience
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[*Client]Audience), log: log}
}

// Track adds a freshly-upgraded connection with no audience yet.
func (h *Hub) Track(c *Client) {
	h.mu.Lock()
	h.clients[c] = AudienceNone
	h.mu.Unlock()
}

// Join moves the connection into an audience group and tells the kitchen
// about the new head count.
func (h *Hub) Join(c *Client, aud Audience) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	h.clients[c] = aud
	h.mu.Unlock()
	h.broadcastCounts()
}

// Leave drops the connection. Safe to call more than once; the send channel is
// closed exactly when the client is removed from the registry.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	aud, ok := h.clients[c]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
	if aud != AudienceNone {
		h.broadcastCounts()
	}
}

func (h *Hub) Counts() (customers, kitchen int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, aud := range h.clients {
		switch aud {
		case AudienceCustomer:
			customers++
		case AudienceKitchen:
			kitchen++
		}
	}
	return customers, kitchen
}

func (h *Hub) ToKitchen(event string, payload any) {
	h.toAudience(event, payload, func(aud Audience) bool { return aud == AudienceKitchen })
}

func (h *Hub) ToAll(event string, payload any) {
	h.toAudience(event, payload, func(aud Audience) bool { return aud != AudienceNone })
}

func (h *Hub) broadcastCounts() {
	customers, kitchen := h.Counts()
	h.ToKitchen(MsgClientsCount, ClientsCountPayload{Customers: customers, Kitchen: kitchen})
}

func (h *Hub) toAudience(event string, payload any, match func(Audience) bool) {
	frame, err := marshalFrame(event, payload)
	if err != nil {
		h.log.Error("marshal frame", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c, aud := range h.clients {
		if !match(aud) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			// slow consumer, drop; the pumps clean up on disconnect
			h.log.Warn("dropping frame for slow client", zap.String("event", event))
		}
	}
}

func marshalFrame(event string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: event, Payload: body})
}
