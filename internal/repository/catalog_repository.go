package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ochre-shop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// catalogRepository implements the CatalogRepository interface using PostgreSQL.
type catalogRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool, logger zerolog.Logger) CatalogRepository {
	return &catalogRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "catalog").Logger(),
	}
}

const productColumns = `
	p.id, p.title, p.slug, p.category_id, c.slug, p.description, p.price,
	p.tax_percent, p.is_experience, p.published, p.created_at`

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(&p.ID, &p.Title, &p.Slug, &p.CategoryID, &p.CategorySlug, &p.Description,
		&p.Price, &p.TaxPercent, &p.IsExperience, &p.Published, &p.CreatedAt)
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *catalogRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	query := `
		INSERT INTO categories (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query, c.Name, c.Slug).Scan(&c.ID); err != nil {
		r.logger.Error().Err(err).Str("slug", c.Slug).Msg("failed to save category")
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

func (r *catalogRepository) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	var (
		where = []string{"p.published"}
		args  []any
	)
	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		where = append(where, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if filter.Experiences != nil {
		args = append(args, *filter.Experiences)
		where = append(where, fmt.Sprintf("p.is_experience = $%d", len(args)))
	}

	query := `SELECT ` + productColumns + `
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.created_at DESC, p.id DESC`

	return r.queryProducts(ctx, query, args...)
}

func (r *catalogRepository) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.slug = $1 AND p.published`

	return r.getProduct(ctx, query, slug)
}

func (r *catalogRepository) GetProductByID(ctx context.Context, id int64, includeUnpublished bool) (*model.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND (p.published OR $2)`

	return r.getProduct(ctx, query, id, includeUnpublished)
}

func (r *catalogRepository) GetProductsByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `SELECT ` + productColumns + `
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.id = ANY($1) AND p.published
		ORDER BY p.id`

	return r.queryProducts(ctx, query, ids)
}

func (r *catalogRepository) getProduct(ctx context.Context, query string, args ...any) (*model.Product, error) {
	var p model.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, args...), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		r.logger.Error().Err(err).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	units, err := r.unitsFor(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Units = units[p.ID]
	return &p, nil
}

func (r *catalogRepository) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	ids := make([]int64, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	units, err := r.unitsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Units = units[products[i].ID]
	}
	return products, nil
}

// unitsFor loads the units of several products in one query, default first.
func (r *catalogRepository) unitsFor(ctx context.Context, productIDs []int64) (map[int64][]model.ProductUnit, error) {
	out := make(map[int64][]model.ProductUnit, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, label, price, is_active, is_default
		FROM product_units
		WHERE product_id = ANY($1)
		ORDER BY product_id, is_default DESC, price, id`, productIDs)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query product units")
		return nil, fmt.Errorf("failed to query product units: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u model.ProductUnit
		if err := rows.Scan(&u.ID, &u.ProductID, &u.Label, &u.Price, &u.IsActive, &u.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan product unit: %w", err)
		}
		out[u.ProductID] = append(out[u.ProductID], u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product units: %w", err)
	}
	return out, nil
}

func (r *catalogRepository) GetUnit(ctx context.Context, productID, unitID int64) (*model.ProductUnit, error) {
	var u model.ProductUnit
	err := r.pool.QueryRow(ctx, `
		SELECT id, product_id, label, price, is_active, is_default
		FROM product_units
		WHERE id = $1 AND product_id = $2`, unitID, productID,
	).Scan(&u.ID, &u.ProductID, &u.Label, &u.Price, &u.IsActive, &u.IsDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUnitNotFound
		}
		r.logger.Error().Err(err).Int64("unit_id", unitID).Msg("failed to query product unit")
		return nil, fmt.Errorf("failed to query product unit: %w", err)
	}
	return &u, nil
}

func (r *catalogRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

func (r *catalogRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	keepLastDefault(p.Units)

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO products (title, slug, category_id, description, price, tax_percent, is_experience, published)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at`,
			p.Title, p.Slug, p.CategoryID, p.Description, p.Price, p.TaxPercent, p.IsExperience, p.Published,
		).Scan(&p.ID, &p.CreatedAt)
		if err != nil {
			return err
		}

		for i := range p.Units {
			p.Units[i].ProductID = p.ID
			if err := insertUnit(ctx, tx, &p.Units[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrSlugTaken
		}
		r.logger.Error().Err(err).Str("slug", p.Slug).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Debug().Int64("product_id", p.ID).Str("slug", p.Slug).Msg("product created")
	return nil
}

// keepLastDefault leaves the default flag only on the last unit that claims it.
func keepLastDefault(units []model.ProductUnit) {
	seen := false
	for i := len(units) - 1; i >= 0; i-- {
		if units[i].IsDefault {
			if seen {
				units[i].IsDefault = false
			}
			seen = true
		}
	}
}

func insertUnit(ctx context.Context, tx pgx.Tx, u *model.ProductUnit) error {
	return tx.QueryRow(ctx, `
		INSERT INTO product_units (product_id, label, price, is_active, is_default)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		u.ProductID, u.Label, u.Price, u.IsActive, u.IsDefault,
	).Scan(&u.ID)
}

func (r *catalogRepository) SaveUnit(ctx context.Context, u *model.ProductUnit) error {
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Serialise unit saves per product so concurrent default claims resolve
		// to the last writer instead of tripping the unique index.
		var productID int64
		err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, u.ProductID).Scan(&productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrProductNotFound
			}
			return err
		}

		if u.IsDefault {
			_, err := tx.Exec(ctx, `
				UPDATE product_units SET is_default = FALSE
				WHERE product_id = $1 AND id <> $2 AND is_default`, u.ProductID, u.ID)
			if err != nil {
				return err
			}
		}

		if u.ID == 0 {
			return insertUnit(ctx, tx, u)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE product_units
			SET label = $3, price = $4, is_active = $5, is_default = $6
			WHERE id = $1 AND product_id = $2`,
			u.ID, u.ProductID, u.Label, u.Price, u.IsActive, u.IsDefault)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrUnitNotFound
		}
		return nil
	})
	if err != nil {
		var domainErr *model.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		r.logger.Error().Err(err).Int64("product_id", u.ProductID).Msg("failed to save product unit")
		return fmt.Errorf("failed to save product unit: %w", err)
	}
	return nil
}
