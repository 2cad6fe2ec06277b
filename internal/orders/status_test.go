package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePaymentMethod(t *testing.T) {
	tests := []struct {
		raw  string
		want PaymentMethod
	}{
		{"cb", PaymentCard},
		{"CB", PaymentCard},
		{"CARD", PaymentCard},
		{"carte", PaymentCard},
		{"ESPECES", PaymentCash},
		{"espèces", PaymentCash},
		{"cash", PaymentCash},
		{"paypal", PaymentPaypal},
		{"PayPal", PaymentPaypal},
		{"  card  ", PaymentCard},
		{"bitcoin", PaymentCash}, // permissive fallback
		{"", PaymentCash},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePaymentMethod(tc.raw))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusNew.Terminal())
	assert.False(t, StatusPreparing.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("SHIPPED").Valid())
	assert.False(t, Status("").Valid())
}

func TestInventoryEffect(t *testing.T) {
	st := func(s Status, paid bool) State { return State{Status: s, Paid: paid} }

	tests := []struct {
		name string
		prev State
		next State
		want Effect
	}{
		{"enter preparing already paid", st(StatusNew, true), st(StatusPreparing, true), EffectDecrement},
		{"enter preparing while unpaid", st(StatusNew, false), st(StatusPreparing, false), EffectNone},
		{"pay while preparing", st(StatusPreparing, false), st(StatusPreparing, true), EffectDecrement},
		{"repeat preparing while paid", st(StatusPreparing, true), st(StatusPreparing, true), EffectNone},
		{"leave preparing to ready", st(StatusPreparing, true), st(StatusReady, true), EffectNone},
		{"cancel while preparing paid", st(StatusPreparing, true), st(StatusCancelled, true), EffectRestore},
		{"cancel while preparing unpaid", st(StatusPreparing, false), st(StatusCancelled, false), EffectNone},
		{"unpay while preparing", st(StatusPreparing, true), st(StatusPreparing, false), EffectRestore},
		{"unpay while ready", st(StatusReady, true), st(StatusReady, false), EffectNone},
		{"cancel from new", st(StatusNew, false), st(StatusCancelled, false), EffectNone},
		{"repeat cancelled", st(StatusCancelled, true), st(StatusCancelled, true), EffectNone},
		{"pay after ready", st(StatusReady, false), st(StatusReady, true), EffectNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InventoryEffect(tc.prev, tc.next))
		})
	}
}

// The two trigger edges can never both fire on one call.
func TestInventoryEffectEdgesExclusive(t *testing.T) {
	statuses := []Status{StatusNew, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled}
	for _, ps := range statuses {
		for _, pp := range []bool{false, true} {
			for _, ns := range statuses {
				for _, np := range []bool{false, true} {
					eff := InventoryEffect(State{ps, pp}, State{ns, np})
					assert.Contains(t, []Effect{EffectNone, EffectDecrement, EffectRestore}, eff)
				}
			}
		}
	}
}
