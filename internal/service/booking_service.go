package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ochre-shop/internal/model"
	"ochre-shop/internal/payment"
	"ochre-shop/internal/pricing"
	"ochre-shop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// bookingService implements BookingService.
type bookingService struct {
	bookingRepo repository.BookingRepository
	catalogRepo repository.CatalogRepository
	gateway     payment.Gateway
	currency    string
	logger      zerolog.Logger
}

// NewBookingService creates a new booking service.
func NewBookingService(
	bookingRepo repository.BookingRepository,
	catalogRepo repository.CatalogRepository,
	gateway payment.Gateway,
	currency string,
	logger zerolog.Logger,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		catalogRepo: catalogRepo,
		gateway:     gateway,
		currency:    currency,
		logger:      logger.With().Str("service", "booking").Logger(),
	}
}

// Create records a booking request. Paid experiences get a gateway order
// when payments are available; otherwise the booking waits for staff.
func (s *bookingService) Create(ctx context.Context, v model.Visitor, req *model.BookingRequest) (*model.BookingView, error) {
	if req == nil {
		return nil, model.NewInputError("Missing required booking fields")
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	experience, err := s.catalogRepo.GetProductByID(ctx, req.ExperienceID, false)
	if err != nil {
		return nil, err
	}
	if !experience.IsExperience {
		return nil, model.ErrProductNotFound
	}

	var date *time.Time
	if req.Date != "" {
		d, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			return nil, model.NewInputError("date must be YYYY-MM-DD")
		}
		date = &d
	}

	amount := pricing.Round(experience.BasePrice())
	booking := &model.ExperienceBooking{
		UUID:            uuid.New(),
		ExperienceID:    experience.ID,
		UserID:          v.UserID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		Date:            date,
		TimeSlot:        strings.TrimSpace(req.TimeSlot),
		Notes:           req.Notes,
		Status:          model.BookingStatusPending,
		PaymentRequired: amount.IsPositive(),
		Amount:          amount,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.logger.Info().
		Str("booking_id", booking.UUID.String()).
		Int64("experience_id", experience.ID).
		Bool("payment_required", booking.PaymentRequired).
		Msg("booking created")

	view := &model.BookingView{
		Booking:     booking,
		AmountMinor: pricing.ToMinorUnits(amount),
		Currency:    s.currency,
	}

	if !booking.PaymentRequired || !s.gateway.Configured() {
		return view, nil
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		AmountMinor: view.AmountMinor,
		Currency:    s.currency,
		Receipt:     booking.UUID.String(),
		AutoCapture: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.UUID.String()).Msg("failed to register booking with gateway")
		return view, nil
	}

	if err := s.bookingRepo.SetPaymentRef(ctx, booking.ID, gwOrder.ID); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.UUID.String()).Msg("failed to store booking payment reference")
		return view, nil
	}

	booking.PaymentRef = &gwOrder.ID
	view.PaymentAvailable = true
	view.GatewayKeyID = s.gateway.KeyID()
	return view, nil
}

func (s *bookingService) Verify(ctx context.Context, req *model.BookingVerifyRequest) (*model.ExperienceBooking, error) {
	if req == nil {
		return nil, model.NewInputError("Missing required fields")
	}
	if err := validateStruct(req); err != nil {
		return nil, model.NewInputError("Missing required fields")
	}

	id, err := parseUUID(req.BookingUUID, model.ErrBookingNotFound)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case model.BookingStatusPaid:
		if booking.GatewayPaymentID != nil && *booking.GatewayPaymentID == req.GatewayPaymentID {
			return booking, nil
		}
		return nil, model.ErrInvalidTransition
	case model.BookingStatusCancelled:
		return nil, model.ErrInvalidTransition
	}

	if !s.gateway.Configured() {
		return nil, model.ErrGatewayNotConfigured
	}
	if booking.PaymentRef != nil && *booking.PaymentRef != req.GatewayOrderID {
		s.logger.Warn().
			Str("booking_id", booking.UUID.String()).
			Str("gateway_order_id", req.GatewayOrderID).
			Msg("gateway order id does not match booking")
		return nil, model.ErrGatewayOrderMismatch
	}
	if err := s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature); err != nil {
		s.logger.Warn().Str("booking_id", booking.UUID.String()).Msg("booking payment signature rejected")
		return nil, model.ErrSignatureInvalid
	}

	if err := s.bookingRepo.MarkPaid(ctx, booking.ID, req.GatewayPaymentID); err != nil {
		return nil, err
	}

	booking.Status = model.BookingStatusPaid
	booking.GatewayPaymentID = &req.GatewayPaymentID

	s.logger.Info().
		Str("booking_id", booking.UUID.String()).
		Str("gateway_payment_id", req.GatewayPaymentID).
		Msg("booking paid")

	return booking, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.ExperienceBooking, error) {
	next := model.BookingStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, model.NewInputError("unknown booking status")
	}

	booking, err := s.bookingRepo.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.Status.CanTransition(next) {
		return nil, model.ErrInvalidTransition
	}

	if err := s.bookingRepo.UpdateStatus(ctx, booking.ID, booking.Status, next); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", booking.UUID.String()).
		Str("from", string(booking.Status)).
		Str("to", string(next)).
		Msg("booking status updated")

	booking.Status = next
	return booking, nil
}
