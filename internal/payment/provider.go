package payment

import (
	"context"
	"fmt"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

// ChargeRequest asks a provider to open a charge for an order. Amounts are in
// minor currency units; providers that bill in major units convert at their
// own boundary.
type ChargeRequest struct {
	OrderID     string
	AmountMinor int64
	Currency    string
}

// IntentHandle is the provider-side charge reference plus whatever the client
// needs to continue the payment: a client secret for confirm-in-place flows,
// an approval URL for redirect flows. It is returned to the caller verbatim
// and never persisted.
type IntentHandle struct {
	Provider     string `json:"provider"`
	Reference    string `json:"id"`
	Status       string `json:"status,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	ApprovalURL  string `json:"approvalUrl,omitempty"`
}

type ChargeState string

const (
	ChargeStatePending   ChargeState = "PENDING"
	ChargeStateCompleted ChargeState = "COMPLETED"
	ChargeStateFailed    ChargeState = "FAILED"
)

type ChargeStatus struct {
	Reference string
	State     ChargeState
	// OrderID is the correlation id attached at charge creation, when the
	// provider echoes it back.
	OrderID string
	Receipt *domain.PaymentReceipt
}

// Provider abstracts the two observed completion protocols. RetrieveCharge is
// a pure status read; FinalizeCharge is the operation that must run before a
// charge counts as complete. For the card-intent provider finalize is just a
// read-and-check, for the redirect provider it is an explicit capture call
// that mutates provider state, so the two stay separate operations.
type Provider interface {
	Name() string
	CreateCharge(ctx context.Context, req *ChargeRequest) (*IntentHandle, error)
	RetrieveCharge(ctx context.Context, reference string) (*ChargeStatus, error)
	FinalizeCharge(ctx context.Context, reference string) (*ChargeStatus, error)
}

// ProviderError carries the provider identity so the caller can pick another
// provider; charge creation is not retried here because it is not idempotent
// at the provider.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
