package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/HarisShah1122/smart-laptop-store/internal/cache"
	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
	"github.com/HarisShah1122/smart-laptop-store/internal/events"
	"github.com/HarisShah1122/smart-laptop-store/internal/payment"
	"github.com/HarisShah1122/smart-laptop-store/internal/repository"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, order *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, userID string, isAdmin bool) (*domain.Order, error)
	ListMyOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)

	InitiatePayment(ctx context.Context, orderID uuid.UUID, provider, userID string) (*payment.IntentHandle, error)
	// PayOrder is the owner-driven confirmation path (PUT /orders/{id}/pay).
	PayOrder(ctx context.Context, orderID uuid.UUID, userID string, receipt *domain.PaymentReceipt) (*domain.Order, error)
	// ValidatePayment finalizes a provider-side charge after the buyer returns
	// from an external redirect, then confirms the order.
	ValidatePayment(ctx context.Context, provider, paymentRef, userID string) (*domain.Order, error)
	// ConfirmPayment is the idempotent unpaid -> paid transition shared by the
	// webhook and client-driven paths.
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, receipt *domain.PaymentReceipt) (*domain.Order, error)

	MarkDelivered(ctx context.Context, orderID uuid.UUID, isAdmin bool) (*domain.Order, error)
}

type OrderServiceImpl struct {
	repo            repository.OrderRepository
	providers       map[string]payment.Provider
	cache           cache.OrderCache
	publisher       events.Publisher
	currency        string
	providerTimeout time.Duration
	group           singleflight.Group
	logger          zerolog.Logger
}

func NewOrderService(
	repo repository.OrderRepository,
	providers []payment.Provider,
	orderCache cache.OrderCache,
	publisher events.Publisher,
	currency string,
	providerTimeout time.Duration,
	logger zerolog.Logger,
) *OrderServiceImpl {
	byName := make(map[string]payment.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &OrderServiceImpl{
		repo:            repo,
		providers:       byName,
		cache:           orderCache,
		publisher:       publisher,
		currency:        currency,
		providerTimeout: providerTimeout,
		logger:          logger,
	}
}

func (s *OrderServiceImpl) CreateOrder(ctx context.Context, userID string, order *domain.Order) (*domain.Order, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}

	order.ID = uuid.New()
	order.UserID = userID
	order.IsPaid = false
	order.PaidAt = nil
	order.PaymentResult = nil
	order.IsDelivered = false
	order.DeliveredAt = nil
	order.CreatedAt = time.Now().UTC()

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create order")
		return nil, err
	}

	s.publishEvent(ctx, events.EventOrderCreated, order)
	return order, nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderID uuid.UUID, userID string, isAdmin bool) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrNotAuthorized
	}
	return order, nil
}

func (s *OrderServiceImpl) ListMyOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	return s.repo.ListOrdersByUserID(ctx, userID)
}

func (s *OrderServiceImpl) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *OrderServiceImpl) MarkDelivered(ctx context.Context, orderID uuid.UUID, isAdmin bool) (*domain.Order, error) {
	if !isAdmin {
		return nil, ErrNotAuthorized
	}

	updated, err := s.repo.MarkDelivered(ctx, orderID, time.Now().UTC())
	if errors.Is(err, repository.ErrOrderNotPaid) {
		return nil, ErrOrderNotPaid
	}
	if errors.Is(err, repository.ErrAlreadyDelivered) {
		// repeat delivery marking is a no-op
		return updated, nil
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, orderID)
	s.publishEvent(ctx, events.EventOrderDelivered, updated)
	return updated, nil
}

// loadOrder is the read-through path: cache first, then the store behind a
// singleflight so a cold cache does not stampede the database.
func (s *OrderServiceImpl) loadOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	cached, err := s.cache.GetOrder(ctx, orderID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("order cache read failed")
	}

	v, err, _ := s.group.Do(orderID.String(), func() (interface{}, error) {
		order, repoErr := s.repo.GetOrderByID(ctx, orderID)
		if repoErr != nil {
			return nil, repoErr
		}
		if cacheErr := s.cache.SetOrder(ctx, order); cacheErr != nil {
			s.logger.Warn().Err(cacheErr).Str("order_id", orderID.String()).Msg("order cache write failed")
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}

func (s *OrderServiceImpl) invalidate(ctx context.Context, orderID uuid.UUID) {
	if err := s.cache.DeleteOrder(ctx, orderID); err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("order cache invalidation failed")
	}
}

// publishEvent never fails the request; the order row is the source of truth
// and consumers tolerate gaps.
func (s *OrderServiceImpl) publishEvent(ctx context.Context, eventType string, order *domain.Order) {
	if err := s.publisher.PublishOrderEvent(ctx, eventType, order); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("order_id", order.ID.String()).
			Msg("failed to publish order event")
	}
}
