package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the persistent cart of an authenticated user.
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItem is one persistent cart line. UnitPrice is the snapshot taken when
// the line was added; TaxPercent and Title are read from the live product.
type CartItem struct {
	ID            int64           `json:"id" db:"id"`
	CartID        int64           `json:"-" db:"cart_id"`
	ProductID     int64           `json:"productId" db:"product_id"`
	ProductSlug   string          `json:"productSlug" db:"product_slug"`
	ProductUnitID *int64          `json:"productUnitId,omitempty" db:"product_unit_id"`
	Quantity      int             `json:"quantity" db:"qty"`
	UnitPrice     decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Title         string          `json:"title" db:"title"`
	UnitLabel     string          `json:"unitLabel,omitempty" db:"unit_label"`
	TaxPercent    decimal.Decimal `json:"taxPercent" db:"tax_percent"`
}

// Visitor identifies whoever is using the cart: a session id for everyone and
// a user id once authenticated.
type Visitor struct {
	SessionID string
	UserID    *int64
}

// Authenticated reports whether the visitor is logged in.
func (v Visitor) Authenticated() bool {
	return v.UserID != nil
}

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 9999

// AddItemRequest is the add-to-cart payload.
type AddItemRequest struct {
	ProductID     int64
	ProductUnitID *int64
	Quantity      int
}

// CartLine is a rendered cart row.
type CartLine struct {
	ProductID     int64           `json:"productId"`
	ProductSlug   string          `json:"productSlug,omitempty"`
	Title         string          `json:"title"`
	ProductUnitID *int64          `json:"productUnitId,omitempty"`
	UnitLabel     string          `json:"unitLabel,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	TaxPercent    decimal.Decimal `json:"taxPercent"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
}

// CartView is the cart page payload.
type CartView struct {
	Items    []CartLine      `json:"items"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}
