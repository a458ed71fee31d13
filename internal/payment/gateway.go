// Package payment talks to the Razorpay-compatible payment gateway: creating
// gateway orders and checking the signatures returned by its checkout widget.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"ochre-shop/internal/config"
	"ochre-shop/internal/model"

	"github.com/rs/zerolog"
)

// OrderRequest is the gateway's create-order payload. AmountMinor is in the
// currency's smallest unit (paise for INR).
type OrderRequest struct {
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	AutoCapture bool   `json:"-"`
}

// Order is the part of the gateway's create-order response we keep.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway is the boundary to the payment provider.
type Gateway interface {
	// Configured reports whether credentials are present.
	Configured() bool

	// KeyID is the publishable key handed to the browser widget.
	KeyID() string

	// CreateOrder registers a payment intent with the provider.
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// VerifySignature checks the HMAC the provider attached to a payment.
	VerifySignature(gatewayOrderID, paymentID, signature string) error
}

// NewGateway returns an SDK-backed client when credentials are configured and a
// disabled gateway otherwise.
func NewGateway(cfg config.GatewayConfig, logger zerolog.Logger) Gateway {
	if !cfg.Configured() {
		logger.Warn().Msg("payment gateway credentials missing, payments disabled")
		return disabledGateway{}
	}
	return newRazorpayClient(cfg, logger)
}

// Sign returns the hex HMAC-SHA256 of "gatewayOrderID|paymentID" under secret,
// the signature the checkout widget hands back after a payment.
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type disabledGateway struct{}

func (disabledGateway) Configured() bool { return false }
func (disabledGateway) KeyID() string    { return "" }

func (disabledGateway) CreateOrder(context.Context, OrderRequest) (*Order, error) {
	return nil, model.ErrGatewayNotConfigured
}

func (disabledGateway) VerifySignature(string, string, string) error {
	return model.ErrGatewayNotConfigured
}
