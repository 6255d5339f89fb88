package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrOrderNotPaid     = errors.New("order is not paid")
	ErrAlreadyDelivered = errors.New("order is already delivered")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)

	// MarkPaid flips an unpaid order to paid with a single conditional write.
	// Returns ErrAlreadyPaid when the order was paid before this call, which
	// callers treat as idempotent success.
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, receipt *domain.PaymentReceipt) (*domain.Order, error)

	// MarkDelivered requires the order to be paid; returns ErrOrderNotPaid
	// otherwise and ErrAlreadyDelivered on a repeat call.
	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) (*domain.Order, error)

	RunMigrations(*Credentials) error
	Close() error
}
