package repository

import (
	"context"
	"errors"
	"fmt"

	"ochre-shop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `
	id, uuid, user_id, status, subtotal, tax_total, total, currency,
	gateway_order_id, gateway_payment_id, gateway_signature, created_at, updated_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(&o.ID, &o.UUID, &o.UserID, &o.Status, &o.Subtotal, &o.TaxTotal, &o.Total, &o.Currency,
		&o.GatewayOrderID, &o.GatewayPaymentID, &o.GatewaySignature, &o.CreatedAt, &o.UpdatedAt)
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (uuid, user_id, status, subtotal, tax_total, total, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := on(r.pool, tx).QueryRow(ctx, query,
		order.UUID, order.UserID, order.Status, order.Subtotal, order.TaxTotal, order.Total, order.Currency,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.UUID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.UUID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, product_id, product_unit_id, title, qty, unit_price, tax_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.OrderID, item.ProductID, item.ProductUnitID, item.Title,
			item.Quantity, item.UnitPrice, item.TaxPercent)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if err := results.QueryRow().Scan(&items[i].ID); err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", items[i].OrderID).
				Str("title", items[i].Title).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

func (r *orderRepository) FindReusable(ctx context.Context, userID int64, total decimal.Decimal) (*model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND status IN ('created', 'payment_pending') AND total = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var o model.Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, userID, total), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to look up reusable order")
		return nil, fmt.Errorf("failed to look up reusable order: %w", err)
	}
	return &o, nil
}

func (r *orderRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getByUUID(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE uuid = $1`, id)
}

func (r *orderRepository) GetByUUIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return r.getByUUID(ctx, on(r.pool, tx), `SELECT `+orderColumns+` FROM orders WHERE uuid = $1 FOR UPDATE`, id)
}

func (r *orderRepository) getByUUID(ctx context.Context, q querier, query string, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	if err := scanOrder(q.QueryRow(ctx, query, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return &o, nil
}

func (r *orderRepository) Items(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_unit_id, title, qty, unit_price, tax_percent
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductUnitID, &it.Title,
			&it.Quantity, &it.UnitPrice, &it.TaxPercent)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) SetGatewayOrder(ctx context.Context, orderID int64, gatewayOrderID string) error {
	query := `
		UPDATE orders
		SET gateway_order_id = $2, status = 'payment_pending', updated_at = NOW()
		WHERE id = $1 AND gateway_order_id IS NULL AND status IN ('created', 'payment_pending')
	`
	tag, err := r.pool.Exec(ctx, query, orderID, gatewayOrderID)
	if isUniqueViolation(err) {
		return model.ErrGatewayOrderMismatch
	}
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to store gateway order")
		return fmt.Errorf("failed to store gateway order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrInvalidTransition
	}
	return nil
}

func (r *orderRepository) MarkFailed(ctx context.Context, tx pgx.Tx, orderID int64) error {
	query := `
		UPDATE orders SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status IN ('created', 'payment_pending', 'failed')
	`
	tag, err := on(r.pool, tx).Exec(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to mark order failed")
		return fmt.Errorf("failed to mark order failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrInvalidTransition
	}
	return nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, orderID int64, gatewayOrderID, paymentID, signature string) error {
	query := `
		UPDATE orders
		SET status = 'paid',
			gateway_order_id = COALESCE(gateway_order_id, $2),
			gateway_payment_id = $3,
			gateway_signature = $4,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('created', 'payment_pending', 'failed')
	`
	tag, err := on(r.pool, tx).Exec(ctx, query, orderID, gatewayOrderID, paymentID, signature)
	if isUniqueViolation(err) {
		r.logger.Warn().
			Int64("order_id", orderID).
			Str("gateway_order_id", gatewayOrderID).
			Msg("gateway order already belongs to another order")
		return model.ErrGatewayOrderMismatch
	}
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to mark order paid")
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrInvalidTransition
	}
	return nil
}

func (r *orderRepository) Cancel(ctx context.Context, orderID int64) error {
	query := `
		UPDATE orders SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('created', 'payment_pending')
	`
	tag, err := r.pool.Exec(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to cancel order")
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrInvalidTransition
	}
	return nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}
