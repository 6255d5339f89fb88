package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/HarisShah1122/smart-laptop-store/internal/domain"
	"github.com/HarisShah1122/smart-laptop-store/internal/payment"
	"github.com/HarisShah1122/smart-laptop-store/internal/repository"
	"github.com/HarisShah1122/smart-laptop-store/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleServiceError is the single translation point from the service error
// taxonomy to HTTP statuses.
func handleServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var validationErr *domain.ValidationError
	var providerErr *payment.ProviderError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, "invalid_order", validationErr.Error())
	case errors.Is(err, service.ErrNotAuthorized):
		respondError(w, http.StatusForbidden, "forbidden", "not authorized for this order")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, service.ErrAlreadyPaid):
		respondError(w, http.StatusConflict, "already_paid", "order is already paid")
	case errors.Is(err, service.ErrOrderNotPaid):
		respondError(w, http.StatusConflict, "order_not_paid", "order has not been paid yet")
	case errors.Is(err, service.ErrUnknownProvider):
		respondError(w, http.StatusBadRequest, "unknown_provider", "unsupported payment provider")
	case errors.Is(err, service.ErrPaymentIncomplete):
		respondError(w, http.StatusBadRequest, "payment_incomplete", "payment has not been completed")
	case errors.Is(err, service.ErrNoCorrelation):
		respondError(w, http.StatusNotFound, "no_correlation", "no order found for payment reference")
	case errors.As(err, &providerErr):
		// provider identity and message go back to the client so it can fall
		// back to the other provider
		logger.Error().Err(err).Str("provider", providerErr.Provider).Msg("payment provider call failed")
		respondError(w, http.StatusBadGateway, "provider_error", providerErr.Provider+": "+providerErr.Message)
	default:
		logger.Error().Err(err).Msg("unhandled service error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
