// Package ws is the realtime boundary: a gorilla/websocket hub fanning
// lifecycle events out to the customer and kitchen audience groups, and a
// closed set of inbound message types validated before any core call.
package ws

import (
	"encoding/json"

	"github.com/avolant/cafe-kds/internal/lifecycle"
	"github.com/avolant/cafe-kds/internal/orders"
)

// Inbound frame types.
const (
	MsgRegister          = "register"
	MsgNewOrder          = "new_order"
	MsgUpdateOrderStatus = "update_order_status"
)

// Outbound frame types emitted only to the originating connection. Broadcast
// event names live in the lifecycle package.
const (
	MsgClientsCount      = "clients_count"
	MsgOrderConfirmation = "order_confirmation"
	MsgOrderError        = "order_error"
	MsgUpdateError       = "update_error"
)

// Frame is the wire shape of every message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RegisterPayload struct {
	ClientType string `json:"clientType"` // customer | kitchen
}

// NewOrderPayload keeps the kiosk client's field names.
type NewOrderPayload struct {
	Nom          string               `json:"nom"`
	Paiement     string               `json:"paiement"`
	Total        int                  `json:"total"`
	Panier       []lifecycle.CartItem `json:"panier"`
	Instructions string               `json:"instructions,omitempty"`
}

type UpdateOrderPayload struct {
	OrderID string         `json:"orderId"`
	Status  *orders.Status `json:"status,omitempty"`
	IsPaid  *bool          `json:"isPaid,omitempty"`
	Note    string         `json:"note,omitempty"`
}

type ClientsCountPayload struct {
	Customers int `json:"customers"`
	Kitchen   int `json:"kitchen"`
}

type OrderConfirmationPayload struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
