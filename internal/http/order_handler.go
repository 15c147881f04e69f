package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/VanderajLS/metier-backend/internal/apperr"
	"github.com/VanderajLS/metier-backend/internal/checkout"
	"github.com/VanderajLS/metier-backend/internal/order"
)

type CheckoutService interface {
	Checkout(ctx context.Context, sessionID string, req checkout.Request) (*order.Order, error)
}

type OrderService interface {
	GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error)
	List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error)
	Stats(ctx context.Context) (order.Stats, error)
	SetStatus(ctx context.Context, orderNumber, newStatus string) (*order.Order, error)
	ConfirmPayment(ctx context.Context, orderNumber, paymentReference string) (*order.Order, error)
}

type OrderHandler struct {
	checkout CheckoutService
	orders   OrderService
}

func NewOrderHandler(checkoutSvc CheckoutService, orders OrderService) *OrderHandler {
	return &OrderHandler{checkout: checkoutSvc, orders: orders}
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validationf("", "invalid request body"))
		return
	}

	o, err := h.checkout.Checkout(r.Context(), sessionID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type listResponse struct {
	Orders  []order.Order `json:"orders"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	f := order.ListFilter{
		Status:  r.URL.Query().Get("status"),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", 20),
	}

	orders, total, err := h.orders.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Orders:  orders,
		Total:   total,
		Page:    f.Page,
		PerPage: f.PerPage,
	})
}

func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.orders.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validationf("", "invalid request body"))
		return
	}

	o, err := h.orders.SetStatus(r.Context(), chi.URLParam(r, "orderNumber"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type confirmPaymentRequest struct {
	PaymentReference string `json:"payment_reference"`
}

func (h *OrderHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validationf("", "invalid request body"))
		return
	}

	o, err := h.orders.ConfirmPayment(r.Context(), chi.URLParam(r, "orderNumber"), req.PaymentReference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
