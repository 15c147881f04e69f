package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/VanderajLS/metier-backend/internal/apperr"
	"github.com/VanderajLS/metier-backend/internal/cart"
)

// CartService is the slice of the cart behavior the handlers need.
type CartService interface {
	Add(ctx context.Context, sessionID, productID string, quantity int) (*cart.View, error)
	UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*cart.View, error)
	Remove(ctx context.Context, sessionID, itemID string) (*cart.View, error)
	Clear(ctx context.Context, sessionID string) (*cart.View, error)
	Count(ctx context.Context, sessionID string) (int, error)
	View(ctx context.Context, sessionID string) (*cart.View, error)
}

type CartHandler struct {
	carts CartService
}

func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.View(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validationf("", "invalid request body"))
		return
	}
	if req.ProductID == "" {
		writeError(w, apperr.Validation("product_id"))
		return
	}

	v, err := h.carts.Add(r.Context(), sessionID(r), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validationf("", "invalid request body"))
		return
	}

	itemID := chi.URLParam(r, "itemId")
	v, err := h.carts.UpdateQuantity(r.Context(), sessionID(r), itemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.Remove(r.Context(), sessionID(r), chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	v, err := h.carts.Clear(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.carts.Count(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
