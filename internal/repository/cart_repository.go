package repository

import (
	"context"
	"errors"
	"fmt"

	"ochre-shop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *cartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *cartRepository) GetOrCreate(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error) {
	query := `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, user_id, updated_at
	`

	var c model.Cart
	if err := on(r.pool, tx).QueryRow(ctx, query, userID).Scan(&c.ID, &c.UserID, &c.UpdatedAt); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get or create cart")
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return &c, nil
}

func (r *cartRepository) Get(ctx context.Context, userID int64) (*model.Cart, error) {
	var c model.Cart
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, updated_at FROM carts WHERE user_id = $1`, userID).
		Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return &c, nil
}

func (r *cartRepository) Lines(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, p.slug, ci.product_unit_id, ci.qty, ci.unit_price,
			p.title, COALESCE(pu.label, ''), p.tax_percent
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_units pu ON pu.id = ci.product_unit_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Int64("cart_id", cartID).Msg("failed to query cart lines")
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.ProductSlug, &it.ProductUnitID, &it.Quantity,
			&it.UnitPrice, &it.Title, &it.UnitLabel, &it.TaxPercent)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}
	return items, nil
}

func (r *cartRepository) AddLine(ctx context.Context, tx pgx.Tx, cartID, productID int64, unitID *int64, qty int, unitPrice decimal.Decimal) error {
	if qty <= 0 || qty > model.MaxLineQuantity {
		return model.ErrInvalidQuantity
	}

	// One statement so concurrent adds cannot lose an increment. An update
	// that would pass the line cap matches no row and leaves the line alone.
	query := `
		INSERT INTO cart_items (cart_id, product_id, product_unit_id, qty, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT cart_items_line_key
		DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty, unit_price = EXCLUDED.unit_price
		WHERE cart_items.qty + EXCLUDED.qty <= $6
	`

	tag, err := on(r.pool, tx).Exec(ctx, query, cartID, productID, unitID, qty, unitPrice, model.MaxLineQuantity)
	if err != nil {
		r.logger.Error().Err(err).
			Int64("cart_id", cartID).
			Int64("product_id", productID).
			Msg("failed to add cart line")
		return fmt.Errorf("failed to add cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrInvalidQuantity
	}
	return nil
}

func (r *cartRepository) RemoveLine(ctx context.Context, cartID, productID int64, unitID *int64) error {
	query := `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND ($3::bigint IS NULL OR product_unit_id = $3)
	`
	if _, err := r.pool.Exec(ctx, query, cartID, productID, unitID); err != nil {
		r.logger.Error().Err(err).Int64("cart_id", cartID).Msg("failed to remove cart line")
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

func (r *cartRepository) Count(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(ci.qty), 0)
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1
	`
	var n int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cart: %w", err)
	}
	return n, nil
}

func (r *cartRepository) ClearForUser(ctx context.Context, tx pgx.Tx, userID int64) error {
	query := `DELETE FROM cart_items USING carts WHERE carts.id = cart_items.cart_id AND carts.user_id = $1`
	if _, err := on(r.pool, tx).Exec(ctx, query, userID); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
