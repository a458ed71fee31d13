package service

import (
	"context"
	"fmt"

	"ochre-shop/internal/model"
	"ochre-shop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orderRepo repository.OrderRepository, logger zerolog.Logger) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// Get retrieves an order with its items. Orders of other users are reported
// as not found.
func (s *orderService) Get(ctx context.Context, userID int64, id uuid.UUID) (*model.OrderResponse, error) {
	order, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	items, err := s.orderRepo.Items(ctx, order.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order items")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &model.OrderResponse{Order: order, Items: items}, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) CancelForUser(ctx context.Context, userID int64, id uuid.UUID) (*model.Order, error) {
	order, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, order)
}

func (s *orderService) Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, order)
}

func (s *orderService) cancel(ctx context.Context, order *model.Order) (*model.Order, error) {
	if !order.Status.Cancellable() {
		return nil, model.ErrInvalidTransition
	}

	// The repository re-checks the status, so a payment landing in between wins.
	if err := s.orderRepo.Cancel(ctx, order.ID); err != nil {
		return nil, err
	}
	order.Status = model.OrderStatusCancelled

	s.logger.Info().Str("order_id", order.UUID.String()).Msg("order cancelled")
	return order, nil
}

func (s *orderService) owned(ctx context.Context, userID int64, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		s.logger.Warn().
			Str("order_id", id.String()).
			Int64("user_id", userID).
			Msg("order requested by another user")
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}
