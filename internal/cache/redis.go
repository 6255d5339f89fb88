package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

const paymentRefTTL = 24 * time.Hour

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	data, err := r.client.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var order domain.Order
	if e2 := json.Unmarshal(data, &order); e2 != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", e2)
	}

	return &order, nil
}

func (r *RedisCache) SetOrder(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if e2 := r.client.Set(ctx, orderKey(order.ID), data, ttl).Err(); e2 != nil {
		return fmt.Errorf("redis set failed: %w", e2)
	}
	return nil
}

func (r *RedisCache) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, orderKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) SetPaymentRef(ctx context.Context, provider, reference, orderID string) error {
	if err := r.client.Set(ctx, paymentRefKey(provider, reference), orderID, paymentRefTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) GetPaymentRef(ctx context.Context, provider, reference string) (string, error) {
	orderID, err := r.client.Get(ctx, paymentRefKey(provider, reference)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return orderID, nil
}

func orderKey(id uuid.UUID) string {
	return fmt.Sprintf("order:%s", id)
}

func paymentRefKey(provider, reference string) string {
	return fmt.Sprintf("payref:%s:%s", provider, reference)
}
