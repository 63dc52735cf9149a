package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister keeps each cart as a JSON value under "cart:<key>".
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister stores carts for ttl after their last change; zero
// keeps them forever.
func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

func (r *RedisPersister) Load(ctx context.Context, key string) (Cart, error) {
	data, err := r.client.Get(ctx, slotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("redis get cart[%s]: %w", key, err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("unmarshal cart[%s]: %w", key, err)
	}
	return c, nil
}

// Save deletes the slot for an empty cart.
func (r *RedisPersister) Save(ctx context.Context, key string, c Cart) error {
	if c.IsEmpty() {
		if err := r.client.Del(ctx, slotKey(key)).Err(); err != nil {
			return fmt.Errorf("redis delete cart[%s]: %w", key, err)
		}
		return nil
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart[%s]: %w", key, err)
	}

	if err := r.client.Set(ctx, slotKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart[%s]: %w", key, err)
	}
	return nil
}

func slotKey(key string) string {
	return "cart:" + key
}
