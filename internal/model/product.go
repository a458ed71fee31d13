package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalogue.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Product is a sellable catalogue entry. Price is nil when the product is
// priced only through its units.
type Product struct {
	ID           int64            `json:"id" db:"id"`
	Title        string           `json:"title" db:"title"`
	Slug         string           `json:"slug" db:"slug"`
	CategoryID   int64            `json:"categoryId" db:"category_id"`
	CategorySlug string           `json:"categorySlug,omitempty" db:"category_slug"`
	Description  string           `json:"description" db:"description"`
	Price        *decimal.Decimal `json:"price" db:"price"`
	TaxPercent   decimal.Decimal  `json:"taxPercent" db:"tax_percent"`
	IsExperience bool             `json:"isExperience" db:"is_experience"`
	Published    bool             `json:"published" db:"published"`
	CreatedAt    time.Time        `json:"createdAt" db:"created_at"`
	Units        []ProductUnit    `json:"units,omitempty"`
}

// ProductUnit is a size/volume variant of a product with its own price.
type ProductUnit struct {
	ID        int64           `json:"id" db:"id"`
	ProductID int64           `json:"productId" db:"product_id"`
	Label     string          `json:"label" db:"label"`
	Price     decimal.Decimal `json:"price" db:"price"`
	IsActive  bool            `json:"isActive" db:"is_active"`
	IsDefault bool            `json:"isDefault" db:"is_default"`
}

// BasePrice returns the product price, or zero when the product has none.
func (p *Product) BasePrice() decimal.Decimal {
	if p.Price == nil {
		return decimal.Zero
	}
	return *p.Price
}

// PriceFor returns the price a line for this product and optional unit should
// snapshot.
func (p *Product) PriceFor(unit *ProductUnit) decimal.Decimal {
	if unit != nil {
		return unit.Price
	}
	return p.BasePrice()
}

// HasActiveUnit reports whether at least one unit can be sold.
func (p *Product) HasActiveUnit() bool {
	for _, u := range p.Units {
		if u.IsActive {
			return true
		}
	}
	return false
}

// ProductFilter narrows catalogue listings.
type ProductFilter struct {
	CategorySlug string
	Experiences  *bool
}

// CreateProductRequest is the staff payload for adding a product.
type CreateProductRequest struct {
	Title        string                   `json:"title" validate:"required,max=255"`
	Slug         string                   `json:"slug" validate:"omitempty,max=255"`
	CategoryID   int64                    `json:"categoryId" validate:"required,gt=0"`
	Description  string                   `json:"description"`
	Price        *decimal.Decimal         `json:"price"`
	TaxPercent   decimal.Decimal          `json:"taxPercent"`
	IsExperience bool                     `json:"isExperience"`
	Published    *bool                    `json:"published"`
	Units        []SaveProductUnitRequest `json:"units" validate:"dive"`
}

// SaveProductUnitRequest is the staff payload for adding or updating a unit.
type SaveProductUnitRequest struct {
	ID        int64           `json:"id"`
	Label     string          `json:"label" validate:"required,max=100"`
	Price     decimal.Decimal `json:"price"`
	IsActive  *bool           `json:"isActive"`
	IsDefault bool            `json:"isDefault"`
}
