package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret      string
	RequestTimeout time.Duration
}

// NewRouter wires the REST surface. The webhook route sits outside the JWT
// group; providers authenticate with a payload signature, not a bearer token.
func NewRouter(cfg RouterConfig, orders *OrderHandler, payments *PaymentHandler, webhooks *WebhookHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/payment/config", payments.Config)
		r.Post("/webhook/stripe", webhooks.HandleStripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.JWTSecret))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orders.CreateOrder)
				r.Get("/my-orders", orders.ListMyOrders)
				r.Get("/{order_id}", orders.GetOrder)
				r.Put("/{order_id}/pay", orders.PayOrder)

				r.Group(func(r chi.Router) {
					r.Use(AdminOnly)
					r.Get("/", orders.ListAllOrders)
					r.Put("/{order_id}/deliver", orders.MarkDelivered)
				})
			})

			r.Post("/payment/order", payments.InitiatePayment)
			r.Post("/payment/validate", payments.ValidatePayment)
		})
	})

	return r
}
