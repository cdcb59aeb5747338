package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-vendormart.git/internal/redisx"
)

// SessionStore maps opaque bearer tokens to identities.
type SessionStore interface {
	Put(ctx context.Context, token string, id Identity) error
	Get(ctx context.Context, token string) (Identity, bool, error)
	Delete(ctx context.Context, token string) error
}

// RedisSessions keeps sessions under session:{token} with a TTL.
type RedisSessions struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *RedisSessions) key(token string) string {
	return fmt.Sprintf(redisx.KeySession, token)
}

func (s *RedisSessions) Put(ctx context.Context, token string, id Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(token), b, s.TTL).Err()
}

func (s *RedisSessions) Get(ctx context.Context, token string) (Identity, bool, error) {
	var id Identity
	b, err := s.Client.Get(ctx, s.key(token)).Bytes()
	if err == redis.Nil {
		return id, false, nil
	}
	if err != nil {
		return id, false, err
	}
	if err := json.Unmarshal(b, &id); err != nil {
		return id, false, err
	}
	return id, true, nil
}

func (s *RedisSessions) Delete(ctx context.Context, token string) error {
	return s.Client.Del(ctx, s.key(token)).Err()
}
