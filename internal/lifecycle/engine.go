// Package lifecycle owns the order state machine: it validates submissions and
// transitions, writes the audit trail, triggers stock adjustments and decides
// what gets broadcast.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/avolant/cafe-kds/internal/kafka"
	"github.com/avolant/cafe-kds/internal/orders"
)

// Broadcast event names fanned out through the hub.
const (
	EventNewOrderReceived   = "new_order_received"
	EventOrderUpdated       = "order_updated"
	EventOrderStatusChanged = "order_status_changed"
	EventProductsUpdated    = "products_updated"
)

const maxNumberRetries = 3

// Store is the transactional order store the engine drives.
type Store interface {
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]orders.Product, error)
	CreateOrder(ctx context.Context, o *orders.Order) error
	ApplyTransition(ctx context.Context, orderID string, status *orders.Status, isPaid *bool, note string) (*orders.Order, orders.State, error)
}

// StockAdjuster applies or reverses stock decrements for one order.
type StockAdjuster interface {
	Decrement(ctx context.Context, o *orders.Order) ([]orders.Product, error)
	Restore(ctx context.Context, o *orders.Order) ([]orders.Product, error)
}

// Broadcaster fans events out to the connected audience groups.
type Broadcaster interface {
	ToKitchen(event string, payload any)
	ToAll(event string, payload any)
}

// Journal is a topic-bound event publisher (nil journals are skipped).
type Journal interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Engine struct {
	Store     Store
	Stock     StockAdjuster
	Broadcast Broadcaster
	Numbers   *orders.NumberGenerator

	CreatedJournal Journal
	StatusJournal  Journal
	StockJournal   Journal

	Service string
	Log     *zap.Logger
}

type CartItem struct {
	ProductID  string `json:"id"`
	Name       string `json:"nom"`
	PriceCents int    `json:"prix"`
	Quantity   int    `json:"quantity"`
}

type SubmitOrderInput struct {
	CustomerName  string
	PaymentMethod string
	TotalCents    int
	Items         []CartItem
	Instructions  string
}

// SubmitOrder validates the cart, resolves every product id, generates the
// daily order number and persists order + item snapshots + first history entry
// atomically. Nothing is persisted when any cart line fails to resolve.
func (e *Engine) SubmitOrder(ctx context.Context, in SubmitOrderInput) (*orders.Order, error) {
	if len(in.Items) == 0 {
		return nil, orders.ErrEmptyCart
	}
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, orders.ErrInvalidQuantity)
		}
		ids = append(ids, it.ProductID)
	}

	known, err := e.Store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	for _, it := range in.Items {
		if _, ok := known[it.ProductID]; !ok {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, orders.ErrProductNotFound)
		}
	}

	o := &orders.Order{
		ID:            uuid.NewString(),
		CustomerName:  in.CustomerName,
		PaymentMethod: orders.NormalizePaymentMethod(in.PaymentMethod),
		TotalCents:    in.TotalCents,
		Status:        orders.StatusNew,
		IsPaid:        false,
		Instructions:  in.Instructions,
		History:       []orders.StatusHistory{{Status: orders.StatusNew, Note: "order created"}},
	}
	for _, it := range in.Items {
		// Snapshot comes from the cart payload, not re-fetched from the catalog.
		o.Items = append(o.Items, orders.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  it.ProductID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		})
	}

	for attempt := 0; ; attempt++ {
		o.Number, err = e.Numbers.Next(ctx)
		if err != nil {
			return nil, err
		}
		err = e.Store.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, orders.ErrDuplicateNumber) && attempt+1 < maxNumberRetries {
			e.Log.Warn("order number conflict, retrying", zap.String("number", o.Number))
			continue
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	e.Log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("number", o.Number),
		zap.Int("items", len(o.Items)))

	e.Broadcast.ToKitchen(EventNewOrderReceived, o)
	e.journal(e.CreatedJournal, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:      o.ID,
		Number:       o.Number,
		CustomerName: o.CustomerName,
		TotalCents:   o.TotalCents,
		Items:        o.Items,
	})
	return o, nil
}

type TransitionInput struct {
	OrderID string
	Status  *orders.Status
	IsPaid  *bool
	Note    string
}

// StatusChangedEvent is the order_status_changed broadcast payload.
type StatusChangedEvent struct {
	OrderID   string        `json:"orderId"`
	Status    orders.Status `json:"status"`
	IsPaid    bool          `json:"isPaid"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ProductsUpdatedEvent carries fresh product state after a stock adjustment.
type ProductsUpdatedEvent struct {
	Products []orders.Product `json:"products"`
}

// TransitionOrder applies a partial (status, isPaid) update, persists it with
// its history entry, then applies the inventory effect of the transition edge
// and broadcasts the outcome. The status commit and the stock adjustment are
// two transactions: a stock failure leaves the status already applied and is
// surfaced to the caller.
func (e *Engine) TransitionOrder(ctx context.Context, in TransitionInput) (*orders.Order, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%q: %w", *in.Status, orders.ErrInvalidStatus)
	}

	o, prev, err := e.Store.ApplyTransition(ctx, in.OrderID, in.Status, in.IsPaid, in.Note)
	if err != nil {
		return nil, err
	}
	next := orders.State{Status: o.Status, Paid: o.IsPaid}

	var affected []orders.Product
	effect := orders.InventoryEffect(prev, next)
	switch effect {
	case orders.EffectDecrement:
		affected, err = e.Stock.Decrement(ctx, o)
	case orders.EffectRestore:
		affected, err = e.Stock.Restore(ctx, o)
	}
	if err != nil {
		// Status update is already committed at this point.
		e.Log.Error("stock adjustment failed after status commit",
			zap.String("order_id", o.ID), zap.Error(err))
		return o, fmt.Errorf("adjust stock: %w", err)
	}

	e.Log.Info("order transitioned",
		zap.String("order_id", o.ID),
		zap.String("from", string(prev.Status)), zap.Bool("from_paid", prev.Paid),
		zap.String("to", string(next.Status)), zap.Bool("to_paid", next.Paid))

	e.Broadcast.ToKitchen(EventOrderUpdated, o)
	e.Broadcast.ToAll(EventOrderStatusChanged, StatusChangedEvent{
		OrderID: o.ID, Status: o.Status, IsPaid: o.IsPaid, UpdatedAt: o.UpdatedAt,
	})
	e.journal(e.StatusJournal, orders.EventOrderStatusChanged, o.ID, orders.OrderStatusChangedPayload{
		OrderID: o.ID, Number: o.Number, Status: o.Status, IsPaid: o.IsPaid, UpdatedAt: o.UpdatedAt,
	})

	if effect != orders.EffectNone {
		e.Broadcast.ToAll(EventProductsUpdated, ProductsUpdatedEvent{Products: affected})
		name := "DECREMENT"
		if effect == orders.EffectRestore {
			name = "RESTORE"
		}
		e.journal(e.StockJournal, orders.EventStockAdjusted, o.ID, orders.StockAdjustedPayload{
			OrderID: o.ID, Effect: name, Products: affected,
		})
	}
	return o, nil
}

func (e *Engine) journal(j Journal, eventType, orderID string, payload any) {
	if j == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	j.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
