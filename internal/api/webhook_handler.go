package api

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HarisShah1122/smart-laptop-store/internal/payment"
	"github.com/HarisShah1122/smart-laptop-store/internal/service"
)

const maxWebhookBody = 1 << 20 // providers keep events well under 1MB

// WebhookVerifier checks a raw webhook payload against its signature header.
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, header string) error
}

type WebhookHandler struct {
	svc      service.OrderService
	verifier WebhookVerifier
	logger   zerolog.Logger
}

func NewWebhookHandler(svc service.OrderService, verifier WebhookVerifier, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, verifier: verifier, logger: logger}
}

// POST /api/v1/webhook/stripe
//
// The signature covers the raw bytes, so the body must be verified before any
// JSON parsing. A failed signature is a hard 400 with no side effects; the
// provider retries rejected deliveries, and replays of accepted ones are
// absorbed by the idempotent confirm.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read request body")
		return
	}

	if err := h.verifier.VerifyWebhookSignature(payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.logger.Warn().Err(err).Msg("webhook signature rejected")
		respondError(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
		return
	}

	event, err := payment.ParseWebhookEvent(payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "malformed webhook payload")
		return
	}

	if !event.PaymentCompleted() {
		// unrelated event types are acknowledged so the provider stops resending
		respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
		return
	}

	orderID, err := uuid.Parse(event.OrderID())
	if err != nil {
		h.logger.Warn().Str("event_type", event.Type).Msg("webhook event without usable order correlation")
		respondError(w, http.StatusBadRequest, "no_correlation", "event carries no order id")
		return
	}

	if _, err := h.svc.ConfirmPayment(r.Context(), orderID, event.Receipt()); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
