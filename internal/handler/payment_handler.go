package handler

import (
	"errors"
	"net/http"

	"ochre-shop/internal/model"
	"ochre-shop/internal/service"

	"github.com/rs/zerolog"
)

// PaymentHandler receives the gateway widget's client-side confirmations.
type PaymentHandler struct {
	payments service.PaymentService
	bookings service.BookingService
	logger   zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(payments service.PaymentService, bookings service.BookingService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		bookings: bookings,
		logger:   logger.With().Str("handler", "payment").Logger(),
	}
}

type verifyResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// verifyFailures are the wire messages the checkout page script expects.
var verifyFailures = []struct {
	err     error
	status  int
	message string
}{
	{model.ErrGatewayNotConfigured, http.StatusInternalServerError, "Razorpay keys not configured"},
	{model.ErrGatewayOrderMismatch, http.StatusBadRequest, "order_id_mismatch"},
	{model.ErrSignatureInvalid, http.StatusBadRequest, "signature_verification_failed"},
}

// Verify handles POST /payments/verify/.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	vals, err := readValues(w, r)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	_, err = h.payments.Verify(r.Context(), &model.VerifyRequest{
		GatewayPaymentID: vals.Get("razorpay_payment_id"),
		GatewayOrderID:   vals.Get("razorpay_order_id"),
		Signature:        vals.Get("razorpay_signature"),
		OrderUUID:        vals.Get("order_internal_id"),
	})
	h.writeVerifyResult(w, err)
}

// VerifyBooking handles POST /payments/bookings/verify/.
func (h *PaymentHandler) VerifyBooking(w http.ResponseWriter, r *http.Request) {
	vals, err := readValues(w, r)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	_, err = h.bookings.Verify(r.Context(), &model.BookingVerifyRequest{
		GatewayPaymentID: vals.Get("razorpay_payment_id"),
		GatewayOrderID:   vals.Get("razorpay_order_id"),
		Signature:        vals.Get("razorpay_signature"),
		BookingUUID:      vals.Get("booking_id"),
	})
	h.writeVerifyResult(w, err)
}

func (h *PaymentHandler) writeVerifyResult(w http.ResponseWriter, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, verifyResponse{OK: true})
		return
	}

	for _, f := range verifyFailures {
		if errors.Is(err, f.err) {
			writeJSON(w, f.status, verifyResponse{OK: false, Error: f.message})
			return
		}
	}
	respondError(w, err, h.logger)
}
