package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-vendormart.git/internal/auth"
	kafkax "github.com/ariefcatur/go-vendormart.git/internal/kafka"
	"github.com/ariefcatur/go-vendormart.git/internal/orders"
	"github.com/ariefcatur/go-vendormart.git/internal/redisx"
)

// UserDirectory resolves the recipient. *auth.Repo implements it.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (*auth.User, error)
}

// Service turns order events into best-effort email. Send failures are
// logged and the offset is committed anyway; notification never blocks or
// fails an order.
type Service struct {
	Users       UserDirectory
	Redis       *redis.Client
	Mailer      Mailer
	ServiceName string
}

func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil // ignore
	}
	if s.seen(ctx, env.EventID) {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Order %s confirmed", p.OrderID)
	body := fmt.Sprintf(
		"Thanks for your order!\n\nOrder: %s\nTotal: %d.%02d\nShipments: %d\n",
		p.OrderID, p.TotalCents/100, p.TotalCents%100, p.SubOrders)
	if p.Paid {
		body += "Payment received.\n"
	}
	s.send(ctx, p.UserID, subject, body)
	return nil
}

func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}
	if s.seen(ctx, env.EventID) {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Order %s update", p.OrderID)
	body := fmt.Sprintf("Your order %s is now %s.\n", p.OrderID, p.Status)
	s.send(ctx, p.UserID, subject, body)
	return nil
}

// seen marks the event id in redis; duplicates are dropped.
func (s *Service) seen(ctx context.Context, eventID string) bool {
	if s.Redis == nil {
		return false
	}
	key := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
	exists, _ := redisx.Exists(ctx, s.Redis, key)
	if exists {
		return true
	}
	_ = s.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
	return false
}

func (s *Service) send(ctx context.Context, userID, subject, body string) {
	u, err := s.Users.UserByID(ctx, userID)
	if err != nil {
		log.Printf("notify lookup user=%s: %v", userID, err)
		return
	}
	if err := s.Mailer.Send(ctx, u.Email, subject, body); err != nil {
		log.Printf("notify send user=%s: %v", userID, err)
	}
}
