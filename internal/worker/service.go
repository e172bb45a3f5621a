package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/shopkit/go-shop-api/internal/kafka"
	"github.com/shopkit/go-shop-api/internal/redisx"
	"github.com/shopkit/go-shop-api/internal/shop"
)

// OrderReader is the read side the worker needs; *shop.Service satisfies it.
type OrderReader interface {
	Get(ctx context.Context, orderID string) (shop.OrderView, error)
}

// Service consumes order.placed events and warms the order read cache so
// the first GET after placement is served from Redis.
type Service struct {
	Orders      OrderReader
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != shop.EventOrderPlaced {
		return nil // ignore
	}

	// dedup by event_id; redelivery is expected with manual commits
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[shop.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	view, err := s.Orders.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	b, err := json.Marshal(view)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyOrderView, p.OrderID)
	if err := s.Redis.Set(ctx, key, b, redisx.TTLOrderView).Err(); err != nil {
		return err
	}
	log.Printf("cached order %s (total=%d)", p.OrderID, view.TotalCents)
	return nil
}
