// Package notify runs the side effects that follow a successful payment:
// confirmation mail, SMS and the receipt archive. A failing hook never
// affects the payment outcome.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReceiptLine is one paid line as shown to the customer.
type ReceiptLine struct {
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TaxPercent decimal.Decimal `json:"taxPercent"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
}

// OrderReceipt is everything a hook may need about a paid order.
type OrderReceipt struct {
	OrderUUID        uuid.UUID       `json:"orderId"`
	CustomerName     string          `json:"customerName"`
	CustomerEmail    string          `json:"customerEmail,omitempty"`
	CustomerPhone    string          `json:"customerPhone,omitempty"`
	Currency         string          `json:"currency"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	GatewayOrderID   string          `json:"gatewayOrderId"`
	GatewayPaymentID string          `json:"gatewayPaymentId"`
	PaidAt           time.Time       `json:"paidAt"`
	Lines            []ReceiptLine   `json:"lines"`
}

// Hook reacts to a paid order.
type Hook interface {
	Name() string
	OrderPaid(ctx context.Context, receipt OrderReceipt) error
}

// Notifier is what the payment flow depends on.
type Notifier interface {
	OrderPaid(ctx context.Context, receipt OrderReceipt)
}

// Dispatcher fans a paid order out to every hook concurrently. Each hook gets
// its own deadline and is detached from the caller's cancellation, so a
// client hanging up after a successful payment still gets its mail.
type Dispatcher struct {
	hooks   []Hook
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher. A non-positive timeout defaults to 10s.
func NewDispatcher(hooks []Hook, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		hooks:   hooks,
		timeout: timeout,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// OrderPaid runs all hooks and waits for them. Errors and panics are logged.
func (d *Dispatcher) OrderPaid(ctx context.Context, receipt OrderReceipt) {
	base := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, h := range d.hooks {
		wg.Add(1)
		go func(h Hook) {
			defer wg.Done()

			hookCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			if err := d.run(hookCtx, h, receipt); err != nil {
				d.logger.Error().
					Err(err).
					Str("hook", h.Name()).
					Str("order_id", receipt.OrderUUID.String()).
					Msg("post-payment hook failed")
				return
			}

			d.logger.Debug().
				Str("hook", h.Name()).
				Str("order_id", receipt.OrderUUID.String()).
				Msg("post-payment hook completed")
		}(h)
	}
	wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, h Hook, receipt OrderReceipt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h.OrderPaid(ctx, receipt)
}
