package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
	"github.com/HarisShah1122/smart-laptop-store/internal/events"
	"github.com/HarisShah1122/smart-laptop-store/internal/payment"
)

func TestInitiatePayment(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	f.stripe.Handle = &payment.IntentHandle{
		Provider:     "stripe",
		Reference:    "pi_123",
		Status:       "requires_payment_method",
		ClientSecret: "pi_123_secret",
	}

	handle, err := f.svc.InitiatePayment(context.Background(), created.ID, "stripe", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "pi_123", handle.Reference)
	assert.Equal(t, "pi_123_secret", handle.ClientSecret)

	require.NotNil(t, f.stripe.LastChargeRequest)
	assert.Equal(t, created.ID.String(), f.stripe.LastChargeRequest.OrderID)
	assert.Equal(t, int64(114999), f.stripe.LastChargeRequest.AmountMinor)
	assert.Equal(t, "usd", f.stripe.LastChargeRequest.Currency)

	// the reference is remembered so a later validate call can find the order
	orderID, err := f.cache.GetPaymentRef(context.Background(), "stripe", "pi_123")
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), orderID)
}

func TestInitiatePayment_NotOwner(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	_, err = f.svc.InitiatePayment(context.Background(), created.ID, "stripe", "user-2")
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Zero(t, f.stripe.CreateCalls)
}

func TestInitiatePayment_AlreadyPaid(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(context.Background(), created.ID, &domain.PaymentReceipt{ID: "pi_1", Status: "succeeded"})
	require.NoError(t, err)

	_, err = f.svc.InitiatePayment(context.Background(), created.ID, "stripe", "user-1")

	assert.ErrorIs(t, err, ErrAlreadyPaid)
	// paid orders must never reach the provider
	assert.Zero(t, f.stripe.CreateCalls)
}

func TestInitiatePayment_UnknownProvider(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	_, err = f.svc.InitiatePayment(context.Background(), created.ID, "bitcoin", "user-1")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestPayOrder(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	receipt := &domain.PaymentReceipt{ID: "pi_1", Status: "succeeded", Provider: "stripe"}

	t.Run("stranger cannot pay", func(t *testing.T) {
		_, err := f.svc.PayOrder(context.Background(), created.ID, "user-2", receipt)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("owner pays", func(t *testing.T) {
		paid, err := f.svc.PayOrder(context.Background(), created.ID, "user-1", receipt)
		require.NoError(t, err)
		assert.True(t, paid.IsPaid)
		require.NotNil(t, paid.PaidAt)
		assert.Equal(t, "pi_1", paid.PaymentResult.ID)
		assert.Equal(t, domain.OrderStatusPaid, paid.Status())
	})
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	first, err := f.svc.ConfirmPayment(context.Background(), created.ID, &domain.PaymentReceipt{ID: "pi_1", Status: "succeeded"})
	require.NoError(t, err)

	// a replayed confirmation succeeds without touching the stored receipt
	second, err := f.svc.ConfirmPayment(context.Background(), created.ID, &domain.PaymentReceipt{ID: "pi_2", Status: "succeeded"})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", second.PaymentResult.ID)
	assert.Equal(t, first.PaidAt.UTC(), second.PaidAt.UTC())
	assert.Equal(t, []string{events.EventOrderCreated, events.EventOrderPaid}, f.publisher.Published())
}

func TestConfirmPayment_Concurrent(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	const confirmations = 16
	var wg sync.WaitGroup
	errs := make(chan error, confirmations)
	for i := 0; i < confirmations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ConfirmPayment(context.Background(), created.ID, &domain.PaymentReceipt{ID: "pi_race", Status: "succeeded"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	// each caller sees success, but only one transition and one event happen
	paid := f.publisher.Published()[1:]
	assert.Equal(t, []string{events.EventOrderPaid}, paid)
	assert.Equal(t, confirmations, f.repo.MarkPaidCalls)
}

func TestValidatePayment(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	f.paypal.Status = &payment.ChargeStatus{
		Reference: "PAYPAL-ORDER-1",
		State:     payment.ChargeStateCompleted,
		OrderID:   created.ID.String(),
		Receipt: &domain.PaymentReceipt{
			ID:           "PAYPAL-ORDER-1",
			Status:       "COMPLETED",
			EmailAddress: "buyer@example.com",
			Provider:     "paypal",
		},
	}

	paid, err := f.svc.ValidatePayment(context.Background(), "paypal", "PAYPAL-ORDER-1", "user-1")
	require.NoError(t, err)

	assert.True(t, paid.IsPaid)
	assert.Equal(t, "buyer@example.com", paid.PaymentResult.EmailAddress)
}

func TestValidatePayment_Incomplete(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	f.stripe.Status = &payment.ChargeStatus{
		Reference: "pi_123",
		State:     payment.ChargeStatePending,
		OrderID:   created.ID.String(),
	}

	_, err = f.svc.ValidatePayment(context.Background(), "stripe", "pi_123", "user-1")
	assert.ErrorIs(t, err, ErrPaymentIncomplete)

	got, err := f.svc.GetOrder(context.Background(), created.ID, "user-1", false)
	require.NoError(t, err)
	assert.False(t, got.IsPaid)
}

func TestValidatePayment_CorrelatesFromCachedRef(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), "user-1", validOrder())
	require.NoError(t, err)

	f.stripe.Handle = &payment.IntentHandle{Provider: "stripe", Reference: "pi_123", Status: "requires_payment_method"}
	_, err = f.svc.InitiatePayment(context.Background(), created.ID, "stripe", "user-1")
	require.NoError(t, err)

	// provider response without an echoed order id falls back to the mapping
	// stored at initiation time
	f.stripe.Status = &payment.ChargeStatus{
		Reference: "pi_123",
		State:     payment.ChargeStateCompleted,
		Receipt:   &domain.PaymentReceipt{ID: "pi_123", Status: "succeeded", Provider: "stripe"},
	}

	paid, err := f.svc.ValidatePayment(context.Background(), "stripe", "pi_123", "user-1")
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
}

func TestValidatePayment_NoCorrelation(t *testing.T) {
	f := newServiceFixture(t)

	f.stripe.Status = &payment.ChargeStatus{
		Reference: "pi_unknown",
		State:     payment.ChargeStateCompleted,
	}

	_, err := f.svc.ValidatePayment(context.Background(), "stripe", "pi_unknown", "user-1")
	assert.ErrorIs(t, err, ErrNoCorrelation)
}
