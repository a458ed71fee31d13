package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "created"
	OrderStatusPaymentPending OrderStatus = "payment_pending"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusFailed         OrderStatus = "failed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Reusable reports whether a checkout may pick this order up again instead of
// creating a new one.
func (s OrderStatus) Reusable() bool {
	return s == OrderStatusCreated || s == OrderStatusPaymentPending
}

// Cancellable reports whether an external cancel is allowed from this state.
func (s OrderStatus) Cancellable() bool {
	return s.Reusable()
}

// Order is an immutable snapshot of a cart at checkout time. UUID is the
// external identifier used as the gateway receipt.
type Order struct {
	ID               int64           `json:"-" db:"id"`
	UUID             uuid.UUID       `json:"id" db:"uuid"`
	UserID           int64           `json:"-" db:"user_id"`
	Status           OrderStatus     `json:"status" db:"status"`
	Subtotal         decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxTotal         decimal.Decimal `json:"taxTotal" db:"tax_total"`
	Total            decimal.Decimal `json:"total" db:"total"`
	Currency         string          `json:"currency" db:"currency"`
	GatewayOrderID   *string         `json:"gatewayOrderId,omitempty" db:"gateway_order_id"`
	GatewayPaymentID *string         `json:"gatewayPaymentId,omitempty" db:"gateway_payment_id"`
	GatewaySignature *string         `json:"-" db:"gateway_signature"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// HasGatewayOrder reports whether the gateway already knows about this order.
func (o *Order) HasGatewayOrder() bool {
	return o.GatewayOrderID != nil && *o.GatewayOrderID != ""
}

// OrderItem is a snapshot of a cart line, decoupled from the live product.
type OrderItem struct {
	ID            int64           `json:"-" db:"id"`
	OrderID       int64           `json:"-" db:"order_id"`
	ProductID     *int64          `json:"productId,omitempty" db:"product_id"`
	ProductUnitID *int64          `json:"productUnitId,omitempty" db:"product_unit_id"`
	Title         string          `json:"title" db:"title"`
	Quantity      int             `json:"quantity" db:"qty"`
	UnitPrice     decimal.Decimal `json:"unitPrice" db:"unit_price"`
	TaxPercent    decimal.Decimal `json:"taxPercent" db:"tax_percent"`
}

// CheckoutView is returned by the checkout page.
type CheckoutView struct {
	Order            *Order      `json:"order"`
	Items            []OrderItem `json:"items"`
	PaymentAvailable bool        `json:"paymentAvailable"`
	GatewayKeyID     string      `json:"gatewayKeyId,omitempty"`
	GatewayOrderID   string      `json:"gatewayOrderId,omitempty"`
	AmountMinor      int64       `json:"amountMinor"`
	Currency         string      `json:"currency"`
}

// OrderResponse carries an order with its lines.
type OrderResponse struct {
	Order *Order      `json:"order"`
	Items []OrderItem `json:"items"`
}

// VerifyRequest is the gateway's client-side confirmation payload.
type VerifyRequest struct {
	GatewayPaymentID string `validate:"required"`
	GatewayOrderID   string `validate:"required"`
	Signature        string `validate:"required"`
	OrderUUID        string `validate:"required"`
}
