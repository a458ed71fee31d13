package handler

import (
	"net/http"
	"strconv"

	"ochre-shop/internal/model"
	"ochre-shop/internal/service"

	"github.com/rs/zerolog"
)

// StaffHandler exposes catalogue upkeep and manual status changes behind the
// staff API key.
type StaffHandler struct {
	catalog  service.CatalogService
	orders   service.OrderService
	bookings service.BookingService
	logger   zerolog.Logger
}

// NewStaffHandler creates a new staff handler.
func NewStaffHandler(catalog service.CatalogService, orders service.OrderService, bookings service.BookingService, logger zerolog.Logger) *StaffHandler {
	return &StaffHandler{
		catalog:  catalog,
		orders:   orders,
		bookings: bookings,
		logger:   logger.With().Str("handler", "staff").Logger(),
	}
}

// CreateProduct handles POST /staff/products/.
func (h *StaffHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err, h.logger)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), &req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// SaveUnit handles POST /staff/products/{id}/units/.
func (h *StaffHandler) SaveUnit(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || productID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product ID", h.logger)
		return
	}

	var req model.SaveProductUnitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err, h.logger)
		return
	}

	unit, err := h.catalog.SaveUnit(r.Context(), productID, &req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

// CancelOrder handles POST /staff/orders/{uuid}/cancel/.
func (h *StaffHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "uuid", model.ErrOrderNotFound)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	order, err := h.orders.Cancel(r.Context(), id)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateBookingStatus handles POST /staff/bookings/{uuid}/status/.
func (h *StaffHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "uuid", model.ErrBookingNotFound)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	vals, err := readValues(w, r)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	booking, err := h.bookings.UpdateStatus(r.Context(), id, vals.Get("status"))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
