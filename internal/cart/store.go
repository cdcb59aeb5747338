package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-vendormart.git/internal/redisx"
)

// Store holds one cart per user. Carts are created lazily on first write and
// persist until cleared; checkout clears them.
type Store interface {
	Get(ctx context.Context, userID string) ([]Item, error)
	Put(ctx context.Context, userID string, items []Item) error
	Clear(ctx context.Context, userID string) error
}

// RedisStore keeps the whole cart as one JSON value under cart:{user_id}.
// No TTL: an abandoned cart persists indefinitely.
type RedisStore struct{ Client *redis.Client }

func (s *RedisStore) key(userID string) string {
	return fmt.Sprintf(redisx.KeyCart, userID)
}

func (s *RedisStore) Get(ctx context.Context, userID string) ([]Item, error) {
	b, err := s.Client.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *RedisStore) Put(ctx context.Context, userID string, items []Item) error {
	if len(items) == 0 {
		return s.Clear(ctx, userID)
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(userID), b, 0).Err()
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	return s.Client.Del(ctx, s.key(userID)).Err()
}
