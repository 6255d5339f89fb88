package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
)

const (
	paypalSandboxBase = "https://api-m.sandbox.paypal.com"
	paypalName        = "paypal"
	tokenExpirySlack  = 60 * time.Second
)

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	// BaseURL defaults to the sandbox host.
	BaseURL string
	// FrontendURL is where the buyer lands after approving or cancelling.
	FrontendURL string
	Timeout     time.Duration
}

// PayPalProvider implements the redirect-capture protocol: the server creates
// a provider-side order with an approval URL, the buyer approves externally,
// and the server must then call capture to turn the authorization into a
// completed charge.
type PayPalProvider struct {
	clientID     string
	clientSecret string
	baseURL      string
	frontendURL  string
	transport    *transport

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalProvider(cfg PayPalConfig) *PayPalProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = paypalSandboxBase
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &PayPalProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		frontendURL:  strings.TrimRight(cfg.FrontendURL, "/"),
		transport:    newTransport(paypalName, timeout),
	}
}

func (p *PayPalProvider) Name() string {
	return paypalName
}

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Payments struct {
			Captures []struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				CustomID string `json:"custom_id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	UpdateTime string `json:"update_time"`
}

func (p *PayPalProvider) CreateCharge(ctx context.Context, req *ChargeRequest) (*IntentHandle, error) {
	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"custom_id": req.OrderID,
				"amount": map[string]string{
					"currency_code": strings.ToUpper(req.Currency),
					// major units on the wire; conversion stays inside the adapter
					"value": domain.MajorUnitString(req.AmountMinor),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": fmt.Sprintf("%s/order/success?orderId=%s", p.frontendURL, url.QueryEscape(req.OrderID)),
			"cancel_url": p.frontendURL + "/order/cancel",
		},
	}

	order, err := p.call(ctx, http.MethodPost, "/v2/checkout/orders", body)
	if err != nil {
		return nil, err
	}

	handle := &IntentHandle{
		Provider:  paypalName,
		Reference: order.ID,
		Status:    order.Status,
	}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			handle.ApprovalURL = link.Href
			break
		}
	}
	if handle.ApprovalURL == "" {
		return nil, &ProviderError{Provider: paypalName, Message: "no approval link in create-order response"}
	}
	return handle, nil
}

func (p *PayPalProvider) RetrieveCharge(ctx context.Context, reference string) (*ChargeStatus, error) {
	order, err := p.call(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	return p.chargeStatus(order), nil
}

// FinalizeCharge performs the explicit capture. It mutates provider state and
// is safe at-most-once on the provider side; callers must not retry blindly.
func (p *PayPalProvider) FinalizeCharge(ctx context.Context, reference string) (*ChargeStatus, error) {
	order, err := p.call(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(reference)+"/capture", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	return p.chargeStatus(order), nil
}

func (p *PayPalProvider) chargeStatus(order *paypalOrder) *ChargeStatus {
	state := ChargeStatePending
	switch order.Status {
	case "COMPLETED":
		state = ChargeStateCompleted
	case "VOIDED":
		state = ChargeStateFailed
	}

	var correlationID string
	for _, unit := range order.PurchaseUnits {
		if unit.CustomID != "" {
			correlationID = unit.CustomID
		}
		for _, capture := range unit.Payments.Captures {
			if capture.CustomID != "" {
				correlationID = capture.CustomID
			}
		}
	}

	return &ChargeStatus{
		Reference: order.ID,
		State:     state,
		OrderID:   correlationID,
		Receipt: &domain.PaymentReceipt{
			ID:           order.ID,
			Status:       order.Status,
			UpdateTime:   order.UpdateTime,
			EmailAddress: order.Payer.EmailAddress,
			Provider:     paypalName,
		},
	}
}

func (p *PayPalProvider) call(ctx context.Context, method, path string, body interface{}) (*paypalOrder, error) {
	token, err := p.token(ctx)
	if err != nil {
		return nil, err
	}

	var reader *bytes.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return nil, &ProviderError{Provider: paypalName, Message: "encode request", Err: marshalErr}
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, &ProviderError{Provider: paypalName, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Prefer", "return=representation")

	resp, err := p.transport.do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: paypalName, Message: "payment API call failed", Err: err}
	}

	if resp.status >= http.StatusBadRequest {
		var apiErr struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(resp.body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return nil, &ProviderError{Provider: paypalName, Message: apiErr.Message}
		}
		return nil, &ProviderError{Provider: paypalName, Message: fmt.Sprintf("unexpected status %d", resp.status)}
	}

	var order paypalOrder
	if err := json.Unmarshal(resp.body, &order); err != nil {
		return nil, &ProviderError{Provider: paypalName, Message: "decode response", Err: err}
	}
	return &order, nil
}

func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &ProviderError{Provider: paypalName, Message: "build token request", Err: err}
	}
	httpReq.SetBasicAuth(p.clientID, p.clientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.transport.do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: paypalName, Message: "token request failed", Err: err}
	}
	if resp.status != http.StatusOK {
		return "", &ProviderError{Provider: paypalName, Message: fmt.Sprintf("token request returned %d", resp.status)}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.body, &tokenResp); err != nil {
		return "", &ProviderError{Provider: paypalName, Message: "decode token response", Err: err}
	}
	if tokenResp.AccessToken == "" {
		return "", &ProviderError{Provider: paypalName, Message: "empty access token"}
	}

	p.accessToken = tokenResp.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenExpirySlack)
	return p.accessToken, nil
}
