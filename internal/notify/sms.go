package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ochre-shop/internal/config"

	"github.com/rs/zerolog"
)

// SMSHook sends a payment SMS through the MSG91 flow API.
type SMSHook struct {
	cfg    config.SMSConfig
	client *http.Client
	logger zerolog.Logger
}

// NewSMSHook creates the SMS hook. The dispatcher deadline bounds each call;
// the client timeout is a backstop.
func NewSMSHook(cfg config.SMSConfig, logger zerolog.Logger) *SMSHook {
	return &SMSHook{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger.With().Str("component", "sms-hook").Logger(),
	}
}

func (h *SMSHook) Name() string { return "sms" }

type flowRecipient struct {
	Mobiles string `json:"mobiles"`
	Name    string `json:"name"`
	Order   string `json:"order"`
	Amount  string `json:"amount"`
}

type flowRequest struct {
	TemplateID string          `json:"template_id"`
	Sender     string          `json:"sender,omitempty"`
	ShortURL   string          `json:"short_url"`
	Recipients []flowRecipient `json:"recipients"`
}

// OrderPaid texts the customer. It is a no-op without credentials or phone.
func (h *SMSHook) OrderPaid(ctx context.Context, receipt OrderReceipt) error {
	if !h.cfg.Configured() {
		h.logger.Debug().Msg("sms not configured, skipping")
		return nil
	}

	mobile := normaliseMobile(receipt.CustomerPhone)
	if mobile == "" {
		h.logger.Debug().
			Str("order_id", receipt.OrderUUID.String()).
			Msg("customer has no phone number, skipping sms")
		return nil
	}

	payload, err := json.Marshal(flowRequest{
		TemplateID: h.cfg.TemplateID,
		Sender:     h.cfg.SenderID,
		ShortURL:   "0",
		Recipients: []flowRecipient{{
			Mobiles: mobile,
			Name:    receipt.CustomerName,
			Order:   receipt.OrderUUID.String(),
			Amount:  receipt.Currency + " " + receipt.Total.StringFixed(2),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms request: %w", err)
	}

	url := strings.TrimRight(h.cfg.BaseURL, "/") + "/api/v5/flow/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("authkey", h.cfg.AuthKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach sms provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("sms provider error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	h.logger.Info().
		Str("order_id", receipt.OrderUUID.String()).
		Msg("payment sms sent")

	return nil
}

// normaliseMobile keeps digits only and prefixes the Indian country code on
// ten-digit numbers.
func normaliseMobile(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return "91" + digits
	}
	return digits
}
