package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

const orderColumns = `id, user_id, order_items, shipping_address, payment_method,
	items_price, tax_price, shipping_price, total_price,
	is_paid, paid_at, payment_result, is_delivered, delivered_at, created_at, updated_at`

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	query := `INSERT INTO orders (id, user_id, order_items, shipping_address, payment_method,
	              items_price, tax_price, shipping_price, total_price, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		itemsJSON,
		addressJSON,
		order.PaymentMethod.String(),
		order.ItemsPrice,
		order.TaxPrice,
		order.ShippingPrice,
		order.TotalPrice,
		order.CreatedAt)

	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(rows)
}

func (r *Repository) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(rows)
}

// MarkPaid is the serialization point for the webhook and client-pull
// confirmation paths: the WHERE clause guarantees at most one caller observes
// the unpaid -> paid transition, no matter how many race.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, receipt *domain.PaymentReceipt) (*domain.Order, error) {
	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment receipt: %w", err)
	}

	query := `UPDATE orders
	          SET is_paid = TRUE, paid_at = $2, payment_result = $3, updated_at = NOW()
	          WHERE id = $1 AND is_paid = FALSE`

	res, execErr := r.db.ExecContext(ctx, query, id, paidAt, receiptJSON)
	if execErr != nil {
		return nil, fmt.Errorf("mark order paid: %w", execErr)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if affected == 0 {
		existing, getErr := r.GetOrderByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing.IsPaid {
			return existing, ErrAlreadyPaid
		}
		return nil, fmt.Errorf("mark order paid: no row updated for %s", id)
	}

	return r.GetOrderByID(ctx, id)
}

func (r *Repository) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) (*domain.Order, error) {
	query := `UPDATE orders
	          SET is_delivered = TRUE, delivered_at = $2, updated_at = NOW()
	          WHERE id = $1 AND is_paid = TRUE AND is_delivered = FALSE`

	res, execErr := r.db.ExecContext(ctx, query, id, deliveredAt)
	if execErr != nil {
		return nil, fmt.Errorf("mark order delivered: %w", execErr)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mark order delivered: %w", err)
	}
	if affected == 0 {
		existing, getErr := r.GetOrderByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if !existing.IsPaid {
			return existing, ErrOrderNotPaid
		}
		return existing, ErrAlreadyDelivered
	}

	return r.GetOrderByID(ctx, id)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order       domain.Order
		itemsJSON   []byte
		addressJSON []byte
		receiptJSON []byte
		method      string
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&itemsJSON,
		&addressJSON,
		&method,
		&order.ItemsPrice,
		&order.TaxPrice,
		&order.ShippingPrice,
		&order.TotalPrice,
		&order.IsPaid,
		&order.PaidAt,
		&receiptJSON,
		&order.IsDelivered,
		&order.DeliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.PaymentMethod = domain.PaymentMethod(method)
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if receiptJSON != nil {
		if err := json.Unmarshal(receiptJSON, &order.PaymentResult); err != nil {
			return nil, fmt.Errorf("unmarshal payment receipt: %w", err)
		}
	}

	return &order, nil
}

func (r *Repository) collectOrders(rows *sql.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}
