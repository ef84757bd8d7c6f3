package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/virtualgoods/ordercore/internal/services/orders"
)

// NewRouter registers all operator endpoints.
func NewRouter(svc *orders.Service) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/users/{userID}", h.RegisterUserHandler)
	r.Get("/users/{userID}/balance", h.GetBalanceHandler)
	r.Get("/users/{userID}/orders/{kind}", h.ListOrdersHandler)
	r.Post("/users/{userID}/orders/{kind}", h.CreateOrderHandler)

	r.Post("/orders/{kind}/{orderID}/status", h.SetStatusHandler)
	r.Post("/orders/charging/{orderID}/amount", h.SetAmountHandler)
	r.Post("/orders/{kind}/{orderID}/notes", h.SetNotesHandler)

	return r
}
