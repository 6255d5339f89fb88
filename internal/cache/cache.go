package cache

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// OrderCache keeps two kinds of entries: cached order reads, invalidated on
// every lifecycle transition, and the provider-reference correlation written
// at payment initiation so the validate path can find its order.
type OrderCache interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	SetOrder(ctx context.Context, order *domain.Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	SetPaymentRef(ctx context.Context, provider, reference, orderID string) error
	GetPaymentRef(ctx context.Context, provider, reference string) (string, error)
}
