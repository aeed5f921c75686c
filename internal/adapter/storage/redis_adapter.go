package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/cart-service/internal/core/domain"
	"github.com/rl1809/cart-service/internal/port"
)

const cartKeyPrefix = "cart:"

// RedisAdapter caches the denormalized cart as JSON under cart:<userID>.
type RedisAdapter struct {
	client     redis.UniversalClient
	defaultTTL time.Duration
}

func NewRedisAdapter(client redis.UniversalClient) *RedisAdapter {
	return &RedisAdapter{client: client, defaultTTL: port.DefaultCacheTTL}
}

func cartKey(userID string) string {
	return cartKeyPrefix + userID
}

func (r *RedisAdapter) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return &cart, nil
}

func (r *RedisAdapter) Put(ctx context.Context, cart domain.Cart) error {
	return r.PutWithTTL(ctx, cart, 0)
}

func (r *RedisAdapter) PutWithTTL(ctx context.Context, cart domain.Cart, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	return r.client.Set(ctx, cartKey(cart.UserID), data, ttl).Err()
}

func (r *RedisAdapter) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, cartKey(userID)).Err()
}

func (r *RedisAdapter) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, cartKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Ping reports whether Redis is reachable.
func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
