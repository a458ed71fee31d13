package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ochre-shop/internal/middleware"
	"ochre-shop/internal/model"
	"ochre-shop/internal/service"

	"github.com/rs/zerolog"
)

// BookingHandler takes experience booking requests.
type BookingHandler struct {
	service service.BookingService
	logger  zerolog.Logger
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(service service.BookingService, logger zerolog.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		logger:  logger.With().Str("handler", "booking").Logger(),
	}
}

// Create handles POST /shop/experiences/book/. Script callers get the
// booking and payment details; form posts go back with booked=1.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	vals, err := readValues(w, r)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	experienceID, err := strconv.ParseInt(strings.TrimSpace(vals.Get("experience_id")), 10, 64)
	if err != nil || experienceID <= 0 {
		respondError(w, model.NewInputError("Missing required booking fields"), h.logger)
		return
	}

	view, err := h.service.Create(r.Context(), middleware.VisitorFrom(r.Context()), &model.BookingRequest{
		ExperienceID:  experienceID,
		CustomerName:  vals.Get("customer_name"),
		CustomerEmail: vals.Get("customer_email"),
		CustomerPhone: vals.Get("customer_phone"),
		Date:          strings.TrimSpace(vals.Get("date")),
		TimeSlot:      vals.Get("time_slot"),
		Notes:         vals.Get("notes"),
	})
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, view)
		return
	}
	http.Redirect(w, r, withQuery(redirectTarget(r, vals.Get("next"), "/shop/?tab=experiences"), "booked", "1"), http.StatusSeeOther)
}

func withQuery(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
