package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventStockAdjusted      = "StockAdjusted"
)

// Envelope is the journal record written to Kafka for every lifecycle event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID      string      `json:"order_id"`
	Number       string      `json:"number"`
	CustomerName string      `json:"customer_name"`
	TotalCents   int         `json:"total_cents"`
	Items        []OrderItem `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID   string    `json:"order_id"`
	Number    string    `json:"number"`
	Status    Status    `json:"status"`
	IsPaid    bool      `json:"is_paid"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StockAdjustedPayload struct {
	OrderID  string    `json:"order_id"`
	Effect   string    `json:"effect"` // DECREMENT | RESTORE
	Products []Product `json:"products"`
}
