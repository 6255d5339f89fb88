package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

const (
	stripeAPIBase         = "https://api.stripe.com"
	stripeName            = "stripe"
	webhookTimestampSkew  = 5 * time.Minute
	signatureSchemePrefix = "v1"
)

var ErrInvalidSignature = errors.New("webhook signature verification failed")

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// BaseURL overrides the live API host, for tests.
	BaseURL string
	Timeout time.Duration
}

// StripeProvider implements the card-intent protocol: the intent is created
// server-side, confirmed client-side against the provider SDK, and the server
// only ever reads the status back.
type StripeProvider struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	transport     *transport
	now           func() time.Time
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &StripeProvider{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
		transport:     newTransport(stripeName, timeout),
		now:           time.Now,
	}
}

func (p *StripeProvider) Name() string {
	return stripeName
}

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Metadata     struct {
		OrderID string `json:"orderId"`
	} `json:"metadata"`
}

type stripeAPIError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *StripeProvider) CreateCharge(ctx context.Context, req *ChargeRequest) (*IntentHandle, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[orderId]", req.OrderID)

	intent, err := p.postForm(ctx, "/v1/payment_intents", form)
	if err != nil {
		return nil, err
	}

	return &IntentHandle{
		Provider:     stripeName,
		Reference:    intent.ID,
		Status:       intent.Status,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (p *StripeProvider) RetrieveCharge(ctx context.Context, reference string) (*ChargeStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v1/payment_intents/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, &ProviderError{Provider: stripeName, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)

	intent, err := p.send(httpReq)
	if err != nil {
		return nil, err
	}

	return p.chargeStatus(intent), nil
}

// FinalizeCharge for the card-intent protocol is retrieve-and-check: there is
// no server-side capture step, confirmation already happened client-side.
func (p *StripeProvider) FinalizeCharge(ctx context.Context, reference string) (*ChargeStatus, error) {
	return p.RetrieveCharge(ctx, reference)
}

func (p *StripeProvider) chargeStatus(intent *stripeIntent) *ChargeStatus {
	state := ChargeStatePending
	switch intent.Status {
	case "succeeded":
		state = ChargeStateCompleted
	case "canceled":
		state = ChargeStateFailed
	}

	return &ChargeStatus{
		Reference: intent.ID,
		State:     state,
		OrderID:   intent.Metadata.OrderID,
		Receipt: &domain.PaymentReceipt{
			ID:       intent.ID,
			Status:   intent.Status,
			Provider: stripeName,
		},
	}
}

func (p *StripeProvider) postForm(ctx context.Context, path string, form url.Values) (*stripeIntent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Provider: stripeName, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return p.send(httpReq)
}

func (p *StripeProvider) send(httpReq *http.Request) (*stripeIntent, error) {
	resp, err := p.transport.do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: stripeName, Message: "payment API call failed", Err: err}
	}

	if resp.status >= http.StatusBadRequest {
		var apiErr stripeAPIError
		if jsonErr := json.Unmarshal(resp.body, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return nil, &ProviderError{Provider: stripeName, Message: apiErr.Error.Message}
		}
		return nil, &ProviderError{Provider: stripeName, Message: fmt.Sprintf("unexpected status %d", resp.status)}
	}

	var intent stripeIntent
	if err := json.Unmarshal(resp.body, &intent); err != nil {
		return nil, &ProviderError{Provider: stripeName, Message: "decode response", Err: err}
	}
	return &intent, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature over the raw payload
// bytes before the payload may be parsed as trusted data. The header format is
// "t=<unix>,v1=<hex>[,v1=<hex>...]".
func (p *StripeProvider) VerifyWebhookSignature(payload []byte, header string) error {
	if header == "" {
		return ErrInvalidSignature
	}

	var timestamp int64
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			timestamp = ts
		case signatureSchemePrefix:
			candidates = append(candidates, v)
		}
	}
	if timestamp == 0 || len(candidates) == 0 {
		return ErrInvalidSignature
	}

	age := p.now().Sub(time.Unix(timestamp, 0))
	if age > webhookTimestampSkew || age < -webhookTimestampSkew {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		sig, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// WebhookEvent is the subset of a provider notification this service acts on.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Metadata struct {
				OrderID string `json:"orderId"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	return &event, nil
}

// PaymentCompleted reports whether the event marks a finished payment.
func (e *WebhookEvent) PaymentCompleted() bool {
	return e.Type == "payment_intent.succeeded" || e.Type == "checkout.session.completed"
}

func (e *WebhookEvent) OrderID() string {
	return e.Data.Object.Metadata.OrderID
}

func (e *WebhookEvent) Receipt() *domain.PaymentReceipt {
	return &domain.PaymentReceipt{
		ID:       e.Data.Object.ID,
		Status:   e.Data.Object.Status,
		Provider: stripeName,
	}
}
