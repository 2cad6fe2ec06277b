package orders

import "time"

type Category string

const (
	CategoryDrink   Category = "DRINK"
	CategoryDessert Category = "DESSERT"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentPaypal PaymentMethod = "PAYPAL"
)

type Product struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Category     Category          `json:"category"`
	PriceCents   int               `json:"price_cents"`
	Stock        int               `json:"stock"`
	IsAvailable  bool              `json:"is_available"`
	Translations map[string]string `json:"translations,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type Order struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	CustomerName  string          `json:"customer_name"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	TotalCents    int             `json:"total_cents"`
	Status        Status          `json:"status"`
	IsPaid        bool            `json:"is_paid"`
	Instructions  string          `json:"instructions,omitempty"`
	Items         []OrderItem     `json:"items,omitempty"`
	History       []StatusHistory `json:"history,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem carries a snapshot of the product's display data (Name, PriceCents)
// taken from the cart payload at creation time. Later catalog edits never touch it.
type OrderItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

type StatusHistory struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
