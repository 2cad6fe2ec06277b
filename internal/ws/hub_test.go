package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/avolant/cafe-kds/internal/lifecycle"
	"github.com/avolant/cafe-kds/internal/orders"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubCore struct {
	submitErr     error
	transitionErr error
}

func (s *stubCore) SubmitOrder(_ context.Context, _ lifecycle.SubmitOrderInput) (*orders.Order, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &orders.Order{ID: "order-1", Number: "20250101-001"}, nil
}

func (s *stubCore) TransitionOrder(_ context.Context, _ lifecycle.TransitionInput) (*orders.Order, error) {
	if s.transitionErr != nil {
		return nil, s.transitionErr
	}
	return &orders.Order{ID: "order-1"}, nil
}

type testRig struct {
	hub  *Hub
	core *stubCore
	srv  *httptest.Server
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	hub := NewHub(zap.NewNop())
	core := &stubCore{}
	wsrv := NewServer(hub, core, "*", zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(wsrv.ServeWS))
	t.Cleanup(srv.Close)
	return &testRig{hub: hub, core: core, srv: srv}
}

func (r *testRig) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(Frame{Type: typ, Payload: body})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// expect reads frames until one of the wanted type arrives and decodes its payload.
func expect(t *testing.T, conn *websocket.Conn, typ string, out any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", typ)
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		if f.Type != typ {
			continue
		}
		if out != nil {
			require.NoError(t, json.Unmarshal(f.Payload, out))
		}
		return
	}
}

func register(t *testing.T, conn *websocket.Conn, clientType string) {
	t.Helper()
	send(t, conn, MsgRegister, RegisterPayload{ClientType: clientType})
}

func TestRegisterBroadcastsCountsToKitchen(t *testing.T) {
	rig := newRig(t)

	kitchen := rig.dial(t)
	register(t, kitchen, "kitchen")

	var counts ClientsCountPayload
	expect(t, kitchen, MsgClientsCount, &counts)
	assert.Equal(t, ClientsCountPayload{Customers: 0, Kitchen: 1}, counts)

	customer := rig.dial(t)
	register(t, customer, "customer")

	expect(t, kitchen, MsgClientsCount, &counts)
	assert.Equal(t, ClientsCountPayload{Customers: 1, Kitchen: 1}, counts)
}

func TestDisconnectDecrementsKitchenCount(t *testing.T) {
	rig := newRig(t)

	kitchen := rig.dial(t)
	register(t, kitchen, "kitchen")
	var counts ClientsCountPayload
	expect(t, kitchen, MsgClientsCount, &counts)

	customer := rig.dial(t)
	register(t, customer, "customer")
	expect(t, kitchen, MsgClientsCount, &counts)
	require.Equal(t, 1, counts.Customers)

	customer.Close()

	expect(t, kitchen, MsgClientsCount, &counts)
	assert.Equal(t, ClientsCountPayload{Customers: 0, Kitchen: 1}, counts)
}

func TestNewOrderConfirmation(t *testing.T) {
	rig := newRig(t)
	customer := rig.dial(t)
	register(t, customer, "customer")

	send(t, customer, MsgNewOrder, NewOrderPayload{
		Nom:      "Alice",
		Paiement: "cb",
		Total:    700,
		Panier:   []lifecycle.CartItem{{ProductID: "prod-a", Name: "Espresso", PriceCents: 250, Quantity: 2}},
	})

	var conf OrderConfirmationPayload
	expect(t, customer, MsgOrderConfirmation, &conf)
	assert.Equal(t, "order-1", conf.OrderID)
	assert.Equal(t, "20250101-001", conf.OrderNumber)
}

func TestNewOrderErrorGoesOnlyToSender(t *testing.T) {
	rig := newRig(t)
	rig.core.submitErr = errors.New("db down")

	kitchen := rig.dial(t)
	register(t, kitchen, "kitchen")
	var counts ClientsCountPayload
	expect(t, kitchen, MsgClientsCount, &counts)

	customer := rig.dial(t)
	register(t, customer, "customer")
	expect(t, kitchen, MsgClientsCount, &counts)

	send(t, customer, MsgNewOrder, NewOrderPayload{Nom: "Bob"})

	var perr ErrorPayload
	expect(t, customer, MsgOrderError, &perr)
	assert.Equal(t, "failed to create order", perr.Message)
	assert.Contains(t, perr.Error, "db down")

	// the connection survives the failure
	send(t, customer, MsgNewOrder, NewOrderPayload{Nom: "Bob"})
	expect(t, customer, MsgOrderError, &perr)
}

func TestUpdateOrderStatusError(t *testing.T) {
	rig := newRig(t)
	rig.core.transitionErr = errors.New("order missing")

	kitchen := rig.dial(t)
	register(t, kitchen, "kitchen")

	send(t, kitchen, MsgUpdateOrderStatus, UpdateOrderPayload{OrderID: "ghost"})

	var perr ErrorPayload
	expect(t, kitchen, MsgUpdateError, &perr)
	assert.Equal(t, "failed to update order", perr.Message)
}

func TestBroadcastAudiences(t *testing.T) {
	rig := newRig(t)

	kitchen := rig.dial(t)
	register(t, kitchen, "kitchen")
	var counts ClientsCountPayload
	expect(t, kitchen, MsgClientsCount, &counts)

	customer := rig.dial(t)
	register(t, customer, "customer")
	expect(t, kitchen, MsgClientsCount, &counts)

	rig.hub.ToKitchen("kitchen_only", map[string]string{"k": "v"})
	rig.hub.ToAll("everyone", map[string]string{"k": "v"})

	// kitchen sees both, in order
	expect(t, kitchen, "kitchen_only", nil)
	expect(t, kitchen, "everyone", nil)

	// the customer must only see the all-audience event
	require.NoError(t, customer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := customer.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, "everyone", f.Type)
}

func TestCountsIgnoreUnregisteredConnections(t *testing.T) {
	rig := newRig(t)

	_ = rig.dial(t) // connected but never registered

	kitchen := rig.dial(t)
	register(t, kitchen, "kitchen")
	var counts ClientsCountPayload
	expect(t, kitchen, MsgClientsCount, &counts)
	assert.Equal(t, ClientsCountPayload{Customers: 0, Kitchen: 1}, counts)
}
