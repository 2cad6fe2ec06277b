package orders

import "strings"

type Status string

const (
	StatusNew       Status = "NEW"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses admit no further transitions except repeating themselves.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// State is the compound (status, isPaid) pair. Inventory effects depend on the
// transition between two States, never on a single resulting State.
type State struct {
	Status Status
	Paid   bool
}

func (s State) preparingPaid() bool {
	return s.Status == StatusPreparing && s.Paid
}

type Effect int

const (
	EffectNone Effect = iota
	EffectDecrement
	EffectRestore
)

// InventoryEffect decides the stock side effect of applying the prev->next
// transition edge. Decrement fires exactly when the order enters
// (PREPARING, paid) from any other compound state; restore fires exactly when
// it leaves that state via cancellation, or by losing paid status while still
// PREPARING. Repeating an edge inside or outside that state fires nothing, so
// stock is never adjusted twice for the same order.
func InventoryEffect(prev, next State) Effect {
	switch {
	case !prev.preparingPaid() && next.preparingPaid():
		return EffectDecrement
	case prev.preparingPaid() && next.Status == StatusCancelled:
		return EffectRestore
	case prev.preparingPaid() && next.Status == StatusPreparing && !next.Paid:
		return EffectRestore
	}
	return EffectNone
}

// NormalizePaymentMethod maps raw client input to a PaymentMethod. Aliases are
// matched case-insensitively; anything unrecognized falls back to CASH rather
// than erroring, keeping kiosk submissions permissive.
func NormalizePaymentMethod(raw string) PaymentMethod {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CB", "CARD", "CARTE":
		return PaymentCard
	case "PAYPAL":
		return PaymentPaypal
	case "ESPECES", "ESPÈCES", "CASH":
		return PaymentCash
	default:
		return PaymentCash
	}
}
