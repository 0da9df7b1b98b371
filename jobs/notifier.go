package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/jonah2xm/e-commerce/internal/catalog"
	"github.com/jonah2xm/e-commerce/internal/orders"
)

// Notifier enqueues email tasks. Every failure is logged and dropped: a dead
// Redis must never fail an order or block a catalog update.
type Notifier struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewNotifier constructs a Notifier around an Asynq client.
func NewNotifier(redisOpts asynq.RedisClientOpt, logger *slog.Logger) *Notifier {
	return &Notifier{client: asynq.NewClient(redisOpts), logger: logger}
}

// Close releases the underlying client.
func (n *Notifier) Close() error {
	return n.client.Close()
}

// OrderConfirmation enqueues the order confirmation email.
func (n *Notifier) OrderConfirmation(ctx context.Context, order orders.Order) {
	lines := make([]OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, OrderLine{
			Name:     item.Name,
			Variant:  item.Variant,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	task, err := NewOrderConfirmationTask(OrderConfirmationPayload{
		Email:       order.Email,
		FirstName:   order.FirstName,
		OrderNumber: order.OrderNumber,
		Items:       lines,
		Subtotal:    order.Totals.Subtotal,
		Shipping:    order.Totals.Shipping,
		Tax:         order.Totals.Tax,
		Total:       order.Totals.Total,
	})
	if err != nil {
		n.logger.Error("build order confirmation task", slog.Any("error", err))
		return
	}
	n.enqueue(ctx, task, order.OrderNumber)
}

// OrderStatusChanged enqueues the status-change email.
func (n *Notifier) OrderStatusChanged(ctx context.Context, order orders.Order) {
	task, err := NewOrderStatusTask(OrderStatusPayload{
		Email:       order.Email,
		FirstName:   order.FirstName,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
	})
	if err != nil {
		n.logger.Error("build order status task", slog.Any("error", err))
		return
	}
	n.enqueue(ctx, task, order.OrderNumber)
}

// ProductOnSale enqueues one sale announcement per wishlist subscriber.
func (n *Notifier) ProductOnSale(ctx context.Context, product catalog.Product, emails []string) {
	salePrice := product.Price
	if product.SalePrice != nil {
		salePrice = *product.SalePrice
	}
	for _, email := range emails {
		task, err := NewWishlistSaleTask(WishlistSalePayload{
			Email:       email,
			ProductName: product.Name,
			Price:       product.Price,
			SalePrice:   salePrice,
			Slug:        product.Slug,
		})
		if err != nil {
			n.logger.Error("build wishlist sale task", slog.Any("error", err))
			return
		}
		n.enqueue(ctx, task, product.Slug)
	}
}

func (n *Notifier) enqueue(ctx context.Context, task *asynq.Task, subject string) {
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(QueueMail)); err != nil {
		n.logger.Error("enqueue email task",
			slog.String("type", task.Type()),
			slog.String("subject", subject),
			slog.Any("error", err))
	}
}
