package repository

import (
	"context"

	"ochre-shop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Methods that take a pgx.Tx run inside it; a nil tx means the pool.

// CatalogRepository defines data access for categories, products and units.
type CatalogRepository interface {
	// ListCategories returns every category ordered by name.
	ListCategories(ctx context.Context) ([]model.Category, error)

	// CreateCategory inserts a category, or renames it when the slug exists.
	CreateCategory(ctx context.Context, c *model.Category) error

	// ListProducts returns published products with their units.
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// GetProductBySlug returns a published product with its units.
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)

	// GetProductByID returns a product with its units. Unpublished products are
	// reported as not found unless includeUnpublished is set.
	GetProductByID(ctx context.Context, id int64, includeUnpublished bool) (*model.Product, error)

	// GetProductsByIDs returns the published subset of ids with their units.
	GetProductsByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// GetUnit returns the unit only if it belongs to productID.
	GetUnit(ctx context.Context, productID, unitID int64) (*model.ProductUnit, error)

	// SlugExists reports whether a product already uses slug.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// CreateProduct inserts a product and its units in one transaction.
	CreateProduct(ctx context.Context, p *model.Product) error

	// SaveUnit inserts or updates a unit. A default unit clears the flag on its
	// siblings in the same transaction.
	SaveUnit(ctx context.Context, u *model.ProductUnit) error
}

// CartRepository defines data access for persistent user carts.
type CartRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// GetOrCreate returns the user's cart, creating it on first use.
	GetOrCreate(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error)

	// Get returns the user's cart or nil when the user has none.
	Get(ctx context.Context, userID int64) (*model.Cart, error)

	// Lines returns the cart lines joined with live product title and tax.
	Lines(ctx context.Context, cartID int64) ([]model.CartItem, error)

	// AddLine atomically adds qty to the (product, unit) line, or creates it,
	// and refreshes its price snapshot.
	AddLine(ctx context.Context, tx pgx.Tx, cartID, productID int64, unitID *int64, qty int, unitPrice decimal.Decimal) error

	// RemoveLine deletes the (product, unit) line if present. A nil unit
	// deletes every line of the product.
	RemoveLine(ctx context.Context, cartID, productID int64, unitID *int64) error

	// Count returns the number of units in the user's cart.
	Count(ctx context.Context, userID int64) (int, error)

	// ClearForUser deletes every line in the user's cart.
	ClearForUser(ctx context.Context, tx pgx.Tx, userID int64) error
}

// OrderRepository defines data access for orders and their lines.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order and fills its generated fields.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// FindReusable returns the newest created or payment_pending order of the
	// user with exactly this total, or nil.
	FindReusable(ctx context.Context, userID int64, total decimal.Decimal) (*model.Order, error)

	// GetByUUID returns the order with the given external identifier.
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByUUIDForUpdate is GetByUUID holding a row lock until tx ends.
	GetByUUIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// Items returns the lines of an order.
	Items(ctx context.Context, orderID int64) ([]model.OrderItem, error)

	// SetGatewayOrder stores the gateway order id and moves the order to
	// payment_pending. It never overwrites an existing gateway id.
	SetGatewayOrder(ctx context.Context, orderID int64, gatewayOrderID string) error

	// MarkFailed moves an unpaid order to failed.
	MarkFailed(ctx context.Context, tx pgx.Tx, orderID int64) error

	// MarkPaid records the gateway payment and moves the order to paid.
	MarkPaid(ctx context.Context, tx pgx.Tx, orderID int64, gatewayOrderID, paymentID, signature string) error

	// Cancel moves a created or payment_pending order to cancelled.
	Cancel(ctx context.Context, orderID int64) error

	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
}

// BookingRepository defines data access for experience bookings.
type BookingRepository interface {
	Create(ctx context.Context, b *model.ExperienceBooking) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.ExperienceBooking, error)
	SetPaymentRef(ctx context.Context, id int64, ref string) error

	// UpdateStatus moves a booking from one status to another, failing with
	// ErrInvalidTransition when the booking is no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) error

	MarkPaid(ctx context.Context, id int64, paymentID string) error
}

// UserRepository defines data access for accounts.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}
