package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HarisShah1122/smart-laptop-store/internal/cache"
	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
	"github.com/HarisShah1122/smart-laptop-store/internal/payment"
	"github.com/HarisShah1122/smart-laptop-store/internal/repository"
)

// MockRepository implements repository.OrderRepository backed by a map. The
// conditional transitions hold the mutex across read-modify-write, matching
// the single-row conditional updates of the real store.
type MockRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order

	CreateErr     error
	GetErr        error
	MarkPaidCalls int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *MockRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *MockRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (m *MockRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, cloneOrder(order))
		}
	}
	return orders, nil
}

func (m *MockRepository) ListOrders(_ context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []*domain.Order
	for _, order := range m.orders {
		orders = append(orders, cloneOrder(order))
	}
	return orders, nil
}

func (m *MockRepository) MarkPaid(_ context.Context, id uuid.UUID, paidAt time.Time, receipt *domain.PaymentReceipt) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkPaidCalls++

	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if order.IsPaid {
		return cloneOrder(order), repository.ErrAlreadyPaid
	}
	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = receipt
	return cloneOrder(order), nil
}

func (m *MockRepository) MarkDelivered(_ context.Context, id uuid.UUID, deliveredAt time.Time) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if !order.IsPaid {
		return cloneOrder(order), repository.ErrOrderNotPaid
	}
	if order.IsDelivered {
		return cloneOrder(order), repository.ErrAlreadyDelivered
	}
	order.IsDelivered = true
	order.DeliveredAt = &deliveredAt
	return cloneOrder(order), nil
}

func (m *MockRepository) RunMigrations(*repository.Credentials) error { return nil }
func (m *MockRepository) Close() error                                { return nil }

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.Items = append([]domain.OrderItem(nil), order.Items...)
	return &clone
}

// MockProvider implements payment.Provider for testing.
type MockProvider struct {
	mu                sync.Mutex
	name              string
	CreateCalls       int
	LastChargeRequest *payment.ChargeRequest

	Handle      *payment.IntentHandle
	CreateErr   error
	Status      *payment.ChargeStatus
	FinalizeErr error
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) CreateCharge(_ context.Context, req *payment.ChargeRequest) (*payment.IntentHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	m.LastChargeRequest = req
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return m.Handle, nil
}

func (m *MockProvider) RetrieveCharge(_ context.Context, _ string) (*payment.ChargeStatus, error) {
	if m.FinalizeErr != nil {
		return nil, m.FinalizeErr
	}
	return m.Status, nil
}

func (m *MockProvider) FinalizeCharge(_ context.Context, _ string) (*payment.ChargeStatus, error) {
	if m.FinalizeErr != nil {
		return nil, m.FinalizeErr
	}
	return m.Status, nil
}

// MockCache implements cache.OrderCache with plain maps.
type MockCache struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*domain.Order
	paymentRefs map[string]string

	GetOrderCalls int
	SetOrderCalls int
	Deleted       []uuid.UUID
}

func NewMockCache() *MockCache {
	return &MockCache{
		orders:      make(map[uuid.UUID]*domain.Order),
		paymentRefs: make(map[string]string),
	}
}

func (m *MockCache) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetOrderCalls++
	order, ok := m.orders[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cloneOrder(order), nil
}

func (m *MockCache) SetOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetOrderCalls++
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *MockCache) DeleteOrder(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	m.Deleted = append(m.Deleted, id)
	return nil
}

func (m *MockCache) SetPaymentRef(_ context.Context, provider, reference, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentRefs[provider+":"+reference] = orderID
	return nil
}

func (m *MockCache) GetPaymentRef(_ context.Context, provider, reference string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orderID, ok := m.paymentRefs[provider+":"+reference]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return orderID, nil
}

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []string
	Err    error
}

func (m *MockPublisher) PublishOrderEvent(_ context.Context, eventType string, _ *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, eventType)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Events...)
}
