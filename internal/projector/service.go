// Package projector keeps the Redis order-status cache in sync with the
// lifecycle event journal.
package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/avolant/cafe-kds/internal/kafka"
	"github.com/avolant/cafe-kds/internal/orders"
	"github.com/avolant/cafe-kds/internal/redisx"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandleStatusChanged consumes order.status.changed envelopes. Events are
// deduplicated by event id so replayed or re-delivered messages are no-ops.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"status":     p.Status,
		"is_paid":    p.IsPaid,
		"updated_at": p.UpdatedAt,
	})
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
	if err := s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	s.Log.Debug("status cache updated",
		zap.String("order_id", p.OrderID), zap.String("status", string(p.Status)))
	return nil
}
