package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ochre-shop/internal/model"
	"ochre-shop/internal/notify"
	"ochre-shop/internal/payment"
	"ochre-shop/internal/pricing"
	"ochre-shop/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// paymentService implements PaymentService.
type paymentService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	userRepo  repository.UserRepository
	gateway   payment.Gateway
	notifier  notify.Notifier
	logger    zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	gateway payment.Gateway,
	notifier notify.Notifier,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		userRepo:  userRepo,
		gateway:   gateway,
		notifier:  notifier,
		logger:    logger.With().Str("service", "payment").Logger(),
	}
}

// Verify checks a client-side payment confirmation and moves the order to
// paid or failed. The order row is locked for the whole decision so two
// confirmations for one order are applied one after the other.
func (s *paymentService) Verify(ctx context.Context, req *model.VerifyRequest) (*model.Order, error) {
	if req == nil {
		return nil, model.NewInputError("Missing required fields")
	}
	if err := validateStruct(req); err != nil {
		return nil, model.NewInputError("Missing required fields")
	}

	orderUUID, err := parseUUID(req.OrderUUID, model.ErrOrderNotFound)
	if err != nil {
		return nil, err
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.orderRepo.GetByUUIDForUpdate(ctx, tx, orderUUID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With().
		Str("order_id", order.UUID.String()).
		Str("gateway_order_id", req.GatewayOrderID).
		Logger()

	switch order.Status {
	case model.OrderStatusPaid:
		// A paid order is never downgraded. Replaying the same confirmation
		// is answered as success.
		if sameConfirmation(order, req) {
			log.Info().Msg("duplicate payment confirmation ignored")
			return order, nil
		}
		log.Warn().Msg("confirmation for an already paid order rejected")
		return nil, model.ErrOrderAlreadyPaid
	case model.OrderStatusCancelled:
		log.Warn().Msg("confirmation for a cancelled order rejected")
		return nil, model.ErrInvalidTransition
	}

	var cause error
	switch {
	case !s.gateway.Configured():
		cause = model.ErrGatewayNotConfigured
	case order.HasGatewayOrder() && *order.GatewayOrderID != req.GatewayOrderID:
		cause = model.ErrGatewayOrderMismatch
	default:
		if vErr := s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature); vErr != nil {
			cause = model.ErrSignatureInvalid
		}
	}

	if cause != nil {
		if err := s.orderRepo.MarkFailed(ctx, tx, order.ID); err != nil {
			return nil, fmt.Errorf("failed to mark order failed: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to mark order failed: %w", err)
		}
		committed = true

		log.Warn().Err(cause).Msg("payment verification failed")
		return nil, cause
	}

	if err := s.markPaid(ctx, tx, order, req); err != nil {
		return nil, err
	}
	committed = true

	log.Info().Str("gateway_payment_id", req.GatewayPaymentID).Msg("order paid")

	s.notifier.OrderPaid(ctx, s.receipt(ctx, order))

	return order, nil
}

// markPaid records the payment, empties the buyer's cart and commits.
func (s *paymentService) markPaid(ctx context.Context, tx pgx.Tx, order *model.Order, req *model.VerifyRequest) error {
	if err := s.orderRepo.MarkPaid(ctx, tx, order.ID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if err := s.cartRepo.ClearForUser(ctx, tx, order.UserID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}

	order.Status = model.OrderStatusPaid
	order.GatewayOrderID = &req.GatewayOrderID
	order.GatewayPaymentID = &req.GatewayPaymentID
	order.GatewaySignature = &req.Signature
	return nil
}

func sameConfirmation(order *model.Order, req *model.VerifyRequest) bool {
	return order.GatewayPaymentID != nil && *order.GatewayPaymentID == req.GatewayPaymentID &&
		order.GatewayOrderID != nil && *order.GatewayOrderID == req.GatewayOrderID &&
		order.GatewaySignature != nil && *order.GatewaySignature == req.Signature
}

// receipt gathers what the hooks need. Lookup failures degrade the receipt
// instead of failing the payment.
func (s *paymentService) receipt(ctx context.Context, order *model.Order) notify.OrderReceipt {
	r := notify.OrderReceipt{
		OrderUUID:        order.UUID,
		Currency:         order.Currency,
		Subtotal:         order.Subtotal,
		Tax:              order.TaxTotal,
		Total:            order.Total,
		GatewayOrderID:   deref(order.GatewayOrderID),
		GatewayPaymentID: deref(order.GatewayPaymentID),
		PaidAt:           time.Now().UTC(),
	}

	user, err := s.userRepo.GetByID(ctx, order.UserID)
	switch {
	case err == nil:
		r.CustomerName = user.Name
		r.CustomerEmail = user.Email
		r.CustomerPhone = user.Phone
	case !errors.Is(err, model.ErrUserNotFound):
		s.logger.Warn().Err(err).Int64("user_id", order.UserID).Msg("failed to load buyer for receipt")
	}

	items, err := s.orderRepo.Items(ctx, order.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.UUID.String()).Msg("failed to load items for receipt")
		return r
	}
	for _, it := range items {
		r.Lines = append(r.Lines, notify.ReceiptLine{
			Title:      it.Title,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TaxPercent: it.TaxPercent,
			LineTotal:  pricing.LineTotal(it.UnitPrice, it.Quantity),
		})
	}
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
