package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HarisShah1122/smart-laptop-store/internal/cache"
	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
	"github.com/HarisShah1122/smart-laptop-store/internal/events"
	"github.com/HarisShah1122/smart-laptop-store/internal/payment"
	"github.com/HarisShah1122/smart-laptop-store/internal/repository"
)

func (s *OrderServiceImpl) InitiatePayment(ctx context.Context, orderID uuid.UUID, provider, userID string) (*payment.IntentHandle, error) {
	// fresh read: initiation decisions must not run against a stale cache entry
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotAuthorized
	}
	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}

	prov, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	req := &payment.ChargeRequest{
		OrderID:     orderID.String(),
		AmountMinor: domain.ToMinorUnits(order.TotalPrice),
		Currency:    s.currency,
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	handle, err := prov.CreateCharge(providerCtx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Str("provider", provider).
			Msg("charge creation failed")
		return nil, err
	}

	// correlation for the validate path; best effort, the provider receipt
	// carries the order id as well
	if cacheErr := s.cache.SetPaymentRef(ctx, prov.Name(), handle.Reference, orderID.String()); cacheErr != nil {
		s.logger.Warn().Err(cacheErr).Str("order_id", orderID.String()).Msg("payment ref correlation write failed")
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("provider", provider).
		Str("reference", handle.Reference).
		Int64("amount_minor", req.AmountMinor).
		Msg("payment initiated")
	return handle, nil
}

func (s *OrderServiceImpl) PayOrder(ctx context.Context, orderID uuid.UUID, userID string, receipt *domain.PaymentReceipt) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotAuthorized
	}
	return s.ConfirmPayment(ctx, orderID, receipt)
}

func (s *OrderServiceImpl) ValidatePayment(ctx context.Context, provider, paymentRef, userID string) (*domain.Order, error) {
	prov, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	status, err := prov.FinalizeCharge(providerCtx, paymentRef)
	if err != nil {
		return nil, err
	}
	if status.State != payment.ChargeStateCompleted {
		return nil, ErrPaymentIncomplete
	}

	orderID, err := s.correlate(ctx, prov.Name(), paymentRef, status.OrderID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotAuthorized
	}

	return s.ConfirmPayment(ctx, orderID, status.Receipt)
}

// ConfirmPayment may race with itself: the webhook and the client validate
// call can both fire for the same order. The store's conditional update picks
// a single winner; everyone else reads back the already-paid order and
// reports success without side effects.
func (s *OrderServiceImpl) ConfirmPayment(ctx context.Context, orderID uuid.UUID, receipt *domain.PaymentReceipt) (*domain.Order, error) {
	updated, err := s.repo.MarkPaid(ctx, orderID, time.Now().UTC(), receipt)
	if errors.Is(err, repository.ErrAlreadyPaid) {
		s.logger.Info().Str("order_id", orderID.String()).Msg("duplicate payment confirmation ignored")
		return updated, nil
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, orderID)
	s.publishEvent(ctx, events.EventOrderPaid, updated)
	s.logger.Info().Str("order_id", orderID.String()).Msg("order marked paid")
	return updated, nil
}

// correlate resolves the order id for a provider charge reference, preferring
// the id echoed back by the provider over the cached mapping.
func (s *OrderServiceImpl) correlate(ctx context.Context, provider, paymentRef, echoed string) (uuid.UUID, error) {
	raw := echoed
	if raw == "" {
		cached, err := s.cache.GetPaymentRef(ctx, provider, paymentRef)
		if errors.Is(err, cache.ErrCacheMiss) {
			return uuid.Nil, ErrNoCorrelation
		}
		if err != nil {
			return uuid.Nil, err
		}
		raw = cached
	}

	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed order correlation id %q: %w", raw, err)
	}
	return orderID, nil
}
