package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ochre-shop/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CatalogService defines read access to the shop and staff product upkeep.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)

	// ListProducts returns published products. tab is "products" or
	// "experiences"; anything else means products.
	ListProducts(ctx context.Context, categorySlug, tab string) ([]model.Product, error)

	// GetProduct returns a published product by slug.
	GetProduct(ctx context.Context, slug string) (*model.Product, error)

	// CreateProduct validates and stores a product with its units. A missing
	// slug is derived from the title and made unique.
	CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)

	// SaveUnit adds or updates a unit of an existing product.
	SaveUnit(ctx context.Context, productID int64, req *model.SaveProductUnitRequest) (*model.ProductUnit, error)
}

// CartService defines cart operations for anonymous and authenticated visitors.
type CartService interface {
	// Add puts qty of a product (and optional unit) in the visitor's cart and
	// returns the new item count.
	Add(ctx context.Context, v model.Visitor, req *model.AddItemRequest) (int, error)

	// Remove drops a (product, unit) line and returns the new item count.
	Remove(ctx context.Context, v model.Visitor, productID int64, unitID *int64) (int, error)

	// View renders the cart with live totals.
	View(ctx context.Context, v model.Visitor) (*model.CartView, error)

	// Count returns the number of items in the cart.
	Count(ctx context.Context, v model.Visitor) (int, error)

	// MergeSessionCart moves the anonymous cart of sid into the user's cart
	// and returns how many lines were merged. It must run once per login.
	MergeSessionCart(ctx context.Context, sid string, userID int64) (int, error)
}

// CheckoutService turns a user's cart into an order awaiting payment.
type CheckoutService interface {
	Checkout(ctx context.Context, userID int64) (*model.CheckoutView, error)
}

// PaymentService confirms gateway payments for orders.
type PaymentService interface {
	Verify(ctx context.Context, req *model.VerifyRequest) (*model.Order, error)
}

// OrderService defines order lookups and cancellation.
type OrderService interface {
	// Get returns an order of userID with its items.
	Get(ctx context.Context, userID int64, id uuid.UUID) (*model.OrderResponse, error)

	ListForUser(ctx context.Context, userID int64) ([]model.Order, error)

	// CancelForUser cancels an unpaid order owned by userID.
	CancelForUser(ctx context.Context, userID int64, id uuid.UUID) (*model.Order, error)

	// Cancel cancels any unpaid order. Staff only.
	Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

// BookingService defines experience reservations.
type BookingService interface {
	Create(ctx context.Context, v model.Visitor, req *model.BookingRequest) (*model.BookingView, error)
	Verify(ctx context.Context, req *model.BookingVerifyRequest) (*model.ExperienceBooking, error)

	// UpdateStatus moves a booking along its lifecycle. Staff only.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.ExperienceBooking, error)
}

// AuthService registers and logs in users. Both merge the caller's session
// cart into the account.
type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest, sid string) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest, sid string) (*model.AuthResponse, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct tag validation and reports the first failure as
// an input error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return model.NewInputError(fmt.Sprintf("%s: failed %q validation", toSnake(fe.Field()), fe.Tag()))
	}
	return model.NewInputError(err.Error())
}

func toSnake(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		upper := r >= 'A' && r <= 'Z'
		if upper {
			if prevLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		prevLower = !upper
		b.WriteRune(r)
	}
	return b.String()
}

func parseUUID(raw string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}
