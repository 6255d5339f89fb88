package api

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
	"github.com/HarisShah1122/smart-laptop-store/internal/payment"
)

// MockOrderService returns canned values; Err short-circuits every method.
type MockOrderService struct {
	Order  *domain.Order
	Orders []*domain.Order
	Handle *payment.IntentHandle
	Err    error

	ConfirmCalls       int
	LastConfirmOrderID uuid.UUID
	LastReceipt        *domain.PaymentReceipt
}

func (m *MockOrderService) CreateOrder(_ context.Context, userID string, order *domain.Order) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	order.ID = uuid.New()
	order.UserID = userID
	order.CreatedAt = time.Now().UTC()
	return order, nil
}

func (m *MockOrderService) GetOrder(context.Context, uuid.UUID, string, bool) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

func (m *MockOrderService) ListMyOrders(context.Context, string) ([]*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Orders, nil
}

func (m *MockOrderService) ListAllOrders(context.Context) ([]*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Orders, nil
}

func (m *MockOrderService) InitiatePayment(context.Context, uuid.UUID, string, string) (*payment.IntentHandle, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Handle, nil
}

func (m *MockOrderService) PayOrder(ctx context.Context, orderID uuid.UUID, _ string, receipt *domain.PaymentReceipt) (*domain.Order, error) {
	return m.ConfirmPayment(ctx, orderID, receipt)
}

func (m *MockOrderService) ValidatePayment(context.Context, string, string, string) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

func (m *MockOrderService) ConfirmPayment(_ context.Context, orderID uuid.UUID, receipt *domain.PaymentReceipt) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.ConfirmCalls++
	m.LastConfirmOrderID = orderID
	m.LastReceipt = receipt
	return m.Order, nil
}

func (m *MockOrderService) MarkDelivered(context.Context, uuid.UUID, bool) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

// MockVerifier accepts everything unless Err is set.
type MockVerifier struct {
	Err   error
	Calls int
}

func (m *MockVerifier) VerifyWebhookSignature([]byte, string) error {
	m.Calls++
	return m.Err
}

const testJWTSecret = "test-secret"

func signToken(userID string, isAdmin bool) string {
	return signTokenWithClaims(userID, isAdmin, testJWTSecret)
}

func signTokenWithSecret(userID, secret string) string {
	return signTokenWithClaims(userID, false, secret)
}

func signTokenWithClaims(userID string, isAdmin bool, secret string) string {
	claims := &Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return token
}
