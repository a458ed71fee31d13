package handler

import (
	"net/http"
	"strconv"
	"strings"

	"ochre-shop/internal/middleware"
	"ochre-shop/internal/model"
	"ochre-shop/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles cart requests for anonymous and logged-in visitors.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

type cartResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
	CartCount int    `json:"cart_count"`
}

// Add handles POST /shop/cart/add/. Script callers get the new count as
// JSON; form posts are redirected back.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	vals, err := readValues(w, r)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	req, err := addItemRequest(vals.Get("product_id"), vals.Get("product_unit_id"), quantityField(vals.Get("quantity"), vals.Get("qty")))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	count, err := h.service.Add(r.Context(), middleware.VisitorFrom(r.Context()), req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, cartResponse{OK: true, Message: "Added to cart", CartCount: count})
		return
	}
	http.Redirect(w, r, redirectTarget(r, vals.Get("next"), "/shop/"), http.StatusSeeOther)
}

// Remove handles POST /shop/cart/remove/.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	vals, err := readValues(w, r)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	productID, ok := optionalID(vals.Get("product_id"))
	if !ok || productID == nil {
		respondError(w, model.NewInputError("Missing product_id"), h.logger)
		return
	}
	unitID, ok := optionalID(vals.Get("product_unit_id"))
	if !ok {
		respondError(w, model.NewInputError("Invalid product_unit_id"), h.logger)
		return
	}

	count, err := h.service.Remove(r.Context(), middleware.VisitorFrom(r.Context()), *productID, unitID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, cartResponse{OK: true, CartCount: count})
		return
	}
	http.Redirect(w, r, "/shop/cart/", http.StatusSeeOther)
}

// View handles GET /shop/cart/.
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), middleware.VisitorFrom(r.Context()))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Count handles GET /shop/cart/count/.
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context(), middleware.VisitorFrom(r.Context()))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{OK: true, CartCount: count})
}

// quantityField prefers quantity and falls back to qty.
func quantityField(quantity, qty string) string {
	if strings.TrimSpace(quantity) != "" {
		return quantity
	}
	return qty
}

func addItemRequest(rawProduct, rawUnit, rawQty string) (*model.AddItemRequest, error) {
	productID, ok := optionalID(rawProduct)
	if !ok || productID == nil {
		return nil, model.NewInputError("Missing product_id")
	}

	unitID, ok := optionalID(rawUnit)
	if !ok {
		return nil, model.NewInputError("Invalid product_unit_id")
	}

	qty := 1
	if rawQty = strings.TrimSpace(rawQty); rawQty != "" {
		n, err := strconv.Atoi(rawQty)
		if err != nil || n < 1 || n > model.MaxLineQuantity {
			return nil, model.ErrInvalidQuantity
		}
		qty = n
	}

	return &model.AddItemRequest{ProductID: *productID, ProductUnitID: unitID, Quantity: qty}, nil
}
