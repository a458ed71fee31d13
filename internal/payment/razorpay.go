package payment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"ochre-shop/internal/config"
	"ochre-shop/internal/model"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/rs/zerolog"
)

type razorpayClient struct {
	keyID     string
	keySecret string
	client    *razorpay.Client
	logger    zerolog.Logger
}

func newRazorpayClient(cfg config.GatewayConfig, logger zerolog.Logger) *razorpayClient {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		razorpay.Request.BaseURL = base
	}
	razorpay.Request.SetTimeout(timeoutSeconds(cfg.Timeout))

	return &razorpayClient{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client:    client,
		logger:    logger.With().Str("component", "gateway").Logger(),
	}
}

// timeoutSeconds rounds up to whole seconds, the SDK's timeout unit.
func timeoutSeconds(d time.Duration) int16 {
	secs := math.Ceil(d.Seconds())
	switch {
	case secs < 1:
		return 1
	case secs > math.MaxInt16:
		return math.MaxInt16
	}
	return int16(secs)
}

func (c *razorpayClient) Configured() bool { return true }
func (c *razorpayClient) KeyID() string    { return c.keyID }

// CreateOrder registers the order with the SDK. The SDK has no context
// support, so a cancelled ctx is only honoured before the call; the client
// timeout bounds the call itself.
func (c *razorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if req.AutoCapture {
		data["payment_capture"] = 1
	}

	resp, err := c.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	order := orderFromResponse(resp)
	if order.ID == "" {
		return nil, fmt.Errorf("gateway returned an order without id")
	}

	c.logger.Debug().
		Str("gateway_order_id", order.ID).
		Str("receipt", req.Receipt).
		Int64("amount", req.AmountMinor).
		Msg("gateway order created")

	return order, nil
}

func orderFromResponse(resp map[string]interface{}) *Order {
	order := &Order{}
	order.ID, _ = resp["id"].(string)
	order.Currency, _ = resp["currency"].(string)
	order.Receipt, _ = resp["receipt"].(string)
	order.Status, _ = resp["status"].(string)
	if amount, ok := resp["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	return order
}

func (c *razorpayClient) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	params := map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": paymentID,
	}
	if signature == "" || !utils.VerifyPaymentSignature(params, signature, c.keySecret) {
		return model.ErrSignatureInvalid
	}
	return nil
}
