package handler

import (
	"errors"
	"net/http"

	"ochre-shop/internal/middleware"
	"ochre-shop/internal/model"
	"ochre-shop/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles checkout and order requests of logged-in users.
type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(checkout service.CheckoutService, orders service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger.With().Str("handler", "order").Logger(),
	}
}

// Checkout handles GET /shop/checkout/. An empty cart sends browsers back to
// the shop.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, model.ErrUnauthorised, h.logger)
		return
	}

	view, err := h.checkout.Checkout(r.Context(), userID)
	if errors.Is(err, model.ErrEmptyCart) && !wantsJSON(r) {
		http.Redirect(w, r, "/shop/", http.StatusSeeOther)
		return
	}
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// List handles GET /shop/orders/.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, model.ErrUnauthorised, h.logger)
		return
	}

	orders, err := h.orders.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /shop/orders/{uuid}/.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, model.ErrUnauthorised, h.logger)
		return
	}

	id, err := pathUUID(r, "uuid", model.ErrOrderNotFound)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	order, err := h.orders.Get(r.Context(), userID, id)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Cancel handles POST /shop/orders/{uuid}/cancel/.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respondError(w, model.ErrUnauthorised, h.logger)
		return
	}

	id, err := pathUUID(r, "uuid", model.ErrOrderNotFound)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	order, err := h.orders.CancelForUser(r.Context(), userID, id)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
