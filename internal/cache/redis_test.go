package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func cachedOrder() *domain.Order {
	return &domain.Order{
		ID:     uuid.New(),
		UserID: "user-1",
		Items: []domain.OrderItem{
			{ProductID: "p-1", Name: "ThinkPad X1", Quantity: 1, UnitPrice: decimal.RequireFromString("65.00")},
		},
		PaymentMethod: domain.PaymentMethodStripe,
		TotalPrice:    decimal.RequireFromString("65.00"),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestGetOrder_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	order := cachedOrder()

	orderJSON, _ := json.Marshal(order)
	mr.Set(orderKey(order.ID), string(orderJSON))

	result, err := cache.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, result.ID)
	assert.Equal(t, "user-1", result.UserID)
	assert.True(t, result.TotalPrice.Equal(order.TotalPrice))
}

func TestGetOrder_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	result, err := cache.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestSetThenGetOrder(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	order := cachedOrder()

	require.NoError(t, cache.SetOrder(ctx, order))
	assert.True(t, mr.Exists(orderKey(order.ID)))

	result, err := cache.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, result.ID)
}

func TestDeleteOrder(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	order := cachedOrder()
	require.NoError(t, cache.SetOrder(ctx, order))

	require.NoError(t, cache.DeleteOrder(ctx, order.ID))
	assert.False(t, mr.Exists(orderKey(order.ID)))
}

func TestPaymentRefRoundTrip(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, cache.SetPaymentRef(ctx, "paypal", "PP-ORDER-1", "order-1"))

	orderID, err := cache.GetPaymentRef(ctx, "paypal", "PP-ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)

	ttl := mr.TTL(paymentRefKey("paypal", "PP-ORDER-1"))
	assert.Equal(t, paymentRefTTL, ttl)
}

func TestGetPaymentRef_Miss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := cache.GetPaymentRef(context.Background(), "stripe", "pi_unknown")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
