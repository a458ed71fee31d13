package service

import (
	"context"
	"errors"
	"fmt"

	"ochre-shop/internal/model"
	"ochre-shop/internal/payment"
	"ochre-shop/internal/pricing"
	"ochre-shop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	gateway   payment.Gateway
	currency  string
	logger    zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	gateway payment.Gateway,
	currency string,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		gateway:   gateway,
		currency:  currency,
		logger:    logger.With().Str("service", "checkout").Logger(),
	}
}

// Checkout snapshots the cart into an order, or picks up an unpaid order
// with the same total, then registers it with the gateway once.
func (s *checkoutService) Checkout(ctx context.Context, userID int64) (*model.CheckoutView, error) {
	cart, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil {
		return nil, model.ErrEmptyCart
	}

	lines, err := s.cartRepo.Lines(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, model.ErrEmptyCart
	}

	totals := pricing.Compute(pricingLines(lines))

	order, err := s.orderRepo.FindReusable(ctx, userID, totals.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending order: %w", err)
	}

	var items []model.OrderItem
	if order != nil {
		s.logger.Debug().
			Str("order_id", order.UUID.String()).
			Int64("user_id", userID).
			Msg("reusing unpaid order")

		items, err = s.orderRepo.Items(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load order items: %w", err)
		}
	} else {
		order, items, err = s.createOrder(ctx, userID, lines, totals)
		if err != nil {
			return nil, err
		}
	}

	view := &model.CheckoutView{
		Order:       order,
		Items:       items,
		AmountMinor: pricing.ToMinorUnits(order.Total),
		Currency:    order.Currency,
	}

	if !s.gateway.Configured() {
		s.logger.Warn().Str("order_id", order.UUID.String()).Msg("gateway unavailable, checkout without payment")
		return view, nil
	}

	if err := s.registerWithGateway(ctx, order); err != nil {
		// The order stays payable later; the page renders without a pay button.
		s.logger.Error().Err(err).Str("order_id", order.UUID.String()).Msg("failed to register order with gateway")
		return view, nil
	}

	view.PaymentAvailable = true
	view.GatewayKeyID = s.gateway.KeyID()
	view.GatewayOrderID = *order.GatewayOrderID
	return view, nil
}

func (s *checkoutService) createOrder(ctx context.Context, userID int64, lines []model.CartItem, totals pricing.Totals) (_ *model.Order, _ []model.OrderItem, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order := &model.Order{
		UUID:     uuid.New(),
		UserID:   userID,
		Status:   model.OrderStatusCreated,
		Subtotal: totals.Subtotal,
		TaxTotal: totals.Tax,
		Total:    totals.Total,
		Currency: s.currency,
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.UUID.String()).Msg("failed to create order")
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]model.OrderItem, len(lines))
	for i, l := range lines {
		productID := l.ProductID
		title := l.Title
		if l.UnitLabel != "" {
			title += " (" + l.UnitLabel + ")"
		}
		items[i] = model.OrderItem{
			OrderID:       order.ID,
			ProductID:     &productID,
			ProductUnitID: l.ProductUnitID,
			Title:         title,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			TaxPercent:    l.TaxPercent,
		}
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.UUID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.UUID.String()).Msg("failed to commit transaction")
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.UUID.String()).
		Int64("user_id", userID).
		Int("item_count", len(items)).
		Str("total", order.Total.String()).
		Msg("order created")

	return order, items, nil
}

// registerWithGateway makes sure order carries a gateway order id. An id
// already on the order is reused without calling the gateway.
func (s *checkoutService) registerWithGateway(ctx context.Context, order *model.Order) error {
	if order.HasGatewayOrder() {
		return nil
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		AmountMinor: pricing.ToMinorUnits(order.Total),
		Currency:    order.Currency,
		Receipt:     order.UUID.String(),
		AutoCapture: true,
	})
	if err != nil {
		return err
	}

	err = s.orderRepo.SetGatewayOrder(ctx, order.ID, gwOrder.ID)
	if errors.Is(err, model.ErrInvalidTransition) {
		// A concurrent checkout registered first; use what it stored.
		current, getErr := s.orderRepo.GetByUUID(ctx, order.UUID)
		if getErr != nil {
			return getErr
		}
		if !current.HasGatewayOrder() {
			return fmt.Errorf("order %s is no longer payable: %w", order.UUID, err)
		}
		*order = *current
		return nil
	}
	if err != nil {
		return err
	}

	order.GatewayOrderID = &gwOrder.ID
	order.Status = model.OrderStatusPaymentPending

	s.logger.Info().
		Str("order_id", order.UUID.String()).
		Str("gateway_order_id", gwOrder.ID).
		Msg("order registered with gateway")

	return nil
}

func pricingLines(items []model.CartItem) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity, TaxPercent: it.TaxPercent}
	}
	return lines
}
