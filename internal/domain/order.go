package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodPayPal PaymentMethod = "paypal"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodStripe || m == PaymentMethodPayPal
}

func (m PaymentMethod) String() string {
	return string(m)
}

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

// OrderItem is a snapshot of a catalog product taken at order-creation time.
// It is never re-derived from the live catalog afterwards.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Image     string          `json:"image,omitempty"`
}

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a ShippingAddress) Complete() bool {
	return a.Address != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

// PaymentReceipt is the opaque provider receipt stored on a paid order.
type PaymentReceipt struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	Provider     string `json:"provider,omitempty"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice"`
	TaxPrice        decimal.Decimal `json:"taxPrice"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaymentResult   *PaymentReceipt `json:"paymentResult,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"-"`
}

// Status derives the lifecycle state from the two payment/delivery flags.
func (o *Order) Status() OrderStatus {
	switch {
	case o.IsDelivered:
		return OrderStatusDelivered
	case o.IsPaid:
		return OrderStatusPaid
	default:
		return OrderStatusCreated
	}
}

func (o *Order) CanMarkPaid() bool {
	return !o.IsPaid
}

// CanMarkDelivered requires the order to be paid first. Field-by-field updates
// do not enforce this, so every delivery transition must go through here or
// the store's conditional update.
func (o *Order) CanMarkDelivered() bool {
	return o.IsPaid && !o.IsDelivered
}

// ValidationError reports a malformed order at creation time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// priceTolerance is one minor currency unit; the total is computed by the
// caller and only validated here.
var priceTolerance = decimal.New(1, -2)

func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return &ValidationError{Field: "orderItems", Reason: "must not be empty"}
	}
	for i, item := range o.Items {
		if item.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("orderItems[%d].quantity", i), Reason: "must be positive"}
		}
		if item.UnitPrice.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("orderItems[%d].unitPrice", i), Reason: "must not be negative"}
		}
	}
	if !o.ShippingAddress.Complete() {
		return &ValidationError{Field: "shippingAddress", Reason: "is incomplete"}
	}
	if !o.PaymentMethod.Valid() {
		return &ValidationError{Field: "paymentMethod", Reason: fmt.Sprintf("%q is not supported", o.PaymentMethod)}
	}
	for _, p := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"itemsPrice", o.ItemsPrice},
		{"taxPrice", o.TaxPrice},
		{"shippingPrice", o.ShippingPrice},
		{"totalPrice", o.TotalPrice},
	} {
		if p.value.IsNegative() {
			return &ValidationError{Field: p.name, Reason: "must not be negative"}
		}
	}
	sum := o.ItemsPrice.Add(o.TaxPrice).Add(o.ShippingPrice)
	if o.TotalPrice.Sub(sum).Abs().GreaterThan(priceTolerance) {
		return &ValidationError{
			Field:  "totalPrice",
			Reason: fmt.Sprintf("%s does not match itemsPrice + taxPrice + shippingPrice = %s", o.TotalPrice, sum),
		}
	}
	return nil
}
