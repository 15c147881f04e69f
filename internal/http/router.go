package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(carts *CartHandler, orders *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", health)

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", carts.Get)
			r.Delete("/", carts.Clear)
			r.Get("/count", carts.Count)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{itemId}", carts.UpdateItem)
			r.Delete("/items/{itemId}", carts.RemoveItem)
		})

		r.Post("/api/checkout", orders.Checkout)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", orders.List)
		r.Get("/stats", orders.Stats)
		r.Get("/{orderNumber}", orders.GetByNumber)
		r.Put("/{orderNumber}/status", orders.UpdateStatus)
		r.Post("/{orderNumber}/confirm-payment", orders.ConfirmPayment)
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
