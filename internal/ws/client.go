package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/avolant/cafe-kds/internal/lifecycle"
	"github.com/avolant/cafe-kds/internal/orders"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	coreTimeout    = 5 * time.Second
)

// Core is the slice of the lifecycle engine the boundary invokes.
type Core interface {
	SubmitOrder(ctx context.Context, in lifecycle.SubmitOrderInput) (*orders.Order, error)
	TransitionOrder(ctx context.Context, in lifecycle.TransitionInput) (*orders.Order, error)
}

type Server struct {
	Hub      *Hub
	Core     Core
	Log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, core Core, allowedOrigin string, log *zap.Logger) *Server {
	return &Server{
		Hub:  hub,
		Core: core,
		Log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

type Client struct {
	srv  *Server
	conn *websocket.Conn
	send chan []byte
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{srv: s, conn: conn, send: make(chan []byte, 256)}
	s.Hub.Track(c)

	go c.writePump()
	go c.readPump()
}

// readPump handles inbound frames sequentially: one in-flight core operation
// per connection, interleaving with other connections only at I/O awaits.
func (c *Client) readPump() {
	defer func() {
		c.srv.Hub.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.srv.Log.Warn("websocket read", zap.Error(err))
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.srv.Log.Warn("malformed frame", zap.Error(err))
			continue
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f Frame) {
	switch f.Type {
	case MsgRegister:
		var p RegisterPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return
		}
		switch Audience(p.ClientType) {
		case AudienceCustomer:
			c.srv.Hub.Join(c, AudienceCustomer)
		case AudienceKitchen:
			c.srv.Hub.Join(c, AudienceKitchen)
		}

	case MsgNewOrder:
		var p NewOrderPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			c.reply(MsgOrderError, ErrorPayload{Message: "invalid order payload", Error: err.Error()})
			return
		}
		items := make([]lifecycle.CartItem, len(p.Panier))
		for i, it := range p.Panier {
			if it.Quantity == 0 {
				it.Quantity = 1
			}
			items[i] = it
		}
		ctx, cancel := context.WithTimeout(context.Background(), coreTimeout)
		o, err := c.srv.Core.SubmitOrder(ctx, lifecycle.SubmitOrderInput{
			CustomerName:  p.Nom,
			PaymentMethod: p.Paiement,
			TotalCents:    p.Total,
			Items:         items,
			Instructions:  p.Instructions,
		})
		cancel()
		if err != nil {
			c.reply(MsgOrderError, ErrorPayload{Message: "failed to create order", Error: err.Error()})
			return
		}
		c.reply(MsgOrderConfirmation, OrderConfirmationPayload{OrderID: o.ID, OrderNumber: o.Number})

	case MsgUpdateOrderStatus:
		var p UpdateOrderPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			c.reply(MsgUpdateError, ErrorPayload{Message: "invalid update payload", Error: err.Error()})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), coreTimeout)
		_, err := c.srv.Core.TransitionOrder(ctx, lifecycle.TransitionInput{
			OrderID: p.OrderID,
			Status:  p.Status,
			IsPaid:  p.IsPaid,
			Note:    p.Note,
		})
		cancel()
		if err != nil {
			c.reply(MsgUpdateError, ErrorPayload{Message: "failed to update order", Error: err.Error()})
		}

	default:
		c.srv.Log.Warn("unknown frame type", zap.String("type", f.Type))
	}
}

func (c *Client) reply(event string, payload any) {
	frame, err := marshalFrame(event, payload)
	if err != nil {
		c.srv.Log.Error("marshal reply", zap.Error(err))
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
