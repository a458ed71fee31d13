package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"ochre-shop/internal/config"

	"github.com/rs/zerolog"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailHook sends the order confirmation over SMTP.
type EmailHook struct {
	cfg      config.EmailConfig
	sendMail sendMailFunc
	logger   zerolog.Logger
}

// NewEmailHook creates the confirmation mail hook.
func NewEmailHook(cfg config.EmailConfig, logger zerolog.Logger) *EmailHook {
	return &EmailHook{
		cfg:      cfg,
		sendMail: smtp.SendMail,
		logger:   logger.With().Str("component", "email-hook").Logger(),
	}
}

func (h *EmailHook) Name() string { return "email" }

// OrderPaid mails the customer, or the shop contact address when the
// customer has no email on file.
func (h *EmailHook) OrderPaid(ctx context.Context, receipt OrderReceipt) error {
	if !h.cfg.Configured() {
		h.logger.Debug().Msg("email not configured, skipping confirmation")
		return nil
	}

	to := receipt.CustomerEmail
	if to == "" {
		to = h.cfg.ContactEmail
	}
	if to == "" {
		h.logger.Warn().
			Str("order_id", receipt.OrderUUID.String()).
			Msg("no recipient for order confirmation")
		return nil
	}

	from := h.cfg.Sender()
	msg := composeConfirmation(from, to, receipt)

	var auth smtp.Auth
	if h.cfg.User != "" {
		auth = smtp.PlainAuth("", h.cfg.User, h.cfg.Password, h.cfg.Host)
	}

	addr := net.JoinHostPort(h.cfg.Host, strconv.Itoa(h.cfg.Port))

	// net/smtp has no context support; run it aside and honour the deadline.
	done := make(chan error, 1)
	go func() {
		done <- h.sendMail(addr, auth, from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send confirmation to %s: %w", to, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("failed to send confirmation to %s: %w", to, ctx.Err())
	}

	h.logger.Info().
		Str("order_id", receipt.OrderUUID.String()).
		Str("to", to).
		Msg("order confirmation sent")

	return nil
}

func composeConfirmation(from, to string, r OrderReceipt) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Order confirmed - %s\r\n", r.OrderUUID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")

	name := r.CustomerName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", name)
	b.WriteString("Thank you for your order. Your payment has been received.\r\n\r\n")
	fmt.Fprintf(&b, "Order: %s\r\n", r.OrderUUID)
	fmt.Fprintf(&b, "Payment: %s\r\n\r\n", r.GatewayPaymentID)

	for _, l := range r.Lines {
		fmt.Fprintf(&b, "%d x %s  %s %s\r\n", l.Quantity, l.Title, r.Currency, l.LineTotal.StringFixed(2))
	}

	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Subtotal: %s %s\r\n", r.Currency, r.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Tax: %s %s\r\n", r.Currency, r.Tax.StringFixed(2))
	fmt.Fprintf(&b, "Total: %s %s\r\n", r.Currency, r.Total.StringFixed(2))

	return []byte(b.String())
}
