package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// Mailer sends email over a plain SMTP relay.
type Mailer struct {
	Addr string // host:port
	From string
}

// Send delivers one HTML email.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		htmlBody,
	}, "\r\n")
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg))
}

// Processor holds the worker-side task handlers.
type Processor struct {
	mailer *Mailer
	logger *slog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(mailer *Mailer, logger *slog.Logger) *Processor {
	return &Processor{mailer: mailer, logger: logger}
}

// HandleOrderConfirmation processes TaskOrderConfirmation tasks.
func (p *Processor) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var payload OrderConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	var lines strings.Builder
	for _, item := range payload.Items {
		fmt.Fprintf(&lines, "<li>%s (%s) × %d — %.2f</li>", item.Name, item.Variant, item.Quantity, item.Price)
	}
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Thanks for your order <strong>%s</strong>.</p><ul>%s</ul><p>Subtotal %.2f · Shipping %.2f · Tax %.2f · <strong>Total %.2f</strong></p>`,
		payload.FirstName, payload.OrderNumber, lines.String(),
		payload.Subtotal, payload.Shipping, payload.Tax, payload.Total)

	subject := "Order confirmation " + payload.OrderNumber
	if err := p.mailer.Send(payload.Email, subject, body); err != nil {
		return fmt.Errorf("order confirmation to %s: %w", payload.Email, err)
	}
	p.logger.Info("order confirmation sent", slog.String("order", payload.OrderNumber))
	return nil
}

// HandleOrderStatus processes TaskOrderStatus tasks.
func (p *Processor) HandleOrderStatus(ctx context.Context, t *asynq.Task) error {
	var payload OrderStatusPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	body := fmt.Sprintf(`<p>Hi %s,</p><p>Your order <strong>%s</strong> is now <strong>%s</strong>.</p>`,
		payload.FirstName, payload.OrderNumber, payload.Status)
	subject := fmt.Sprintf("Order %s %s", payload.OrderNumber, payload.Status)
	if err := p.mailer.Send(payload.Email, subject, body); err != nil {
		return fmt.Errorf("order status to %s: %w", payload.Email, err)
	}
	return nil
}

// HandleWishlistSale processes TaskWishlistSale tasks.
func (p *Processor) HandleWishlistSale(ctx context.Context, t *asynq.Task) error {
	var payload WishlistSalePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	body := fmt.Sprintf(`<p><strong>%s</strong> is on sale: <del>%.2f</del> <strong>%.2f</strong>.</p><p>/products/%s</p>`,
		payload.ProductName, payload.Price, payload.SalePrice, payload.Slug)
	subject := payload.ProductName + " is on sale"
	if err := p.mailer.Send(payload.Email, subject, body); err != nil {
		return fmt.Errorf("wishlist sale to %s: %w", payload.Email, err)
	}
	return nil
}
