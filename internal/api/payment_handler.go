package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HarisShah1122/smart-laptop-store/internal/service"
)

type PaymentHandler struct {
	svc                  service.OrderService
	stripePublishableKey string
	paypalClientID       string
	logger               zerolog.Logger
}

func NewPaymentHandler(svc service.OrderService, stripePublishableKey, paypalClientID string, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		svc:                  svc,
		stripePublishableKey: stripePublishableKey,
		paypalClientID:       paypalClientID,
		logger:               logger,
	}
}

type PaymentConfigResponse struct {
	StripePublishableKey string `json:"stripePublishableKey"`
	PayPalClientID       string `json:"paypalClientId"`
}

// GET /api/v1/payment/config returns the public keys for the checkout frontend.
func (h *PaymentHandler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, PaymentConfigResponse{
		StripePublishableKey: h.stripePublishableKey,
		PayPalClientID:       h.paypalClientID,
	})
}

type InitiatePaymentRequest struct {
	OrderID  string `json:"orderId"`
	Provider string `json:"provider"`
}

// POST /api/v1/payment/order
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "orderId must be a UUID")
		return
	}
	if req.Provider == "" {
		respondError(w, http.StatusBadRequest, "missing_provider", "provider is required")
		return
	}

	handle, err := h.svc.InitiatePayment(r.Context(), orderID, req.Provider, userIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, handle)
}

type ValidatePaymentRequest struct {
	Provider  string `json:"provider"`
	PaymentID string `json:"paymentId"`
}

// POST /api/v1/payment/validate: the client returned from the provider and
// asks us to finalize and confirm.
func (h *PaymentHandler) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	var req ValidatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Provider == "" || req.PaymentID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "provider and paymentId are required")
		return
	}

	order, err := h.svc.ValidatePayment(r.Context(), req.Provider, req.PaymentID, userIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
