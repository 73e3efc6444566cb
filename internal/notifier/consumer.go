package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/selleropsapp/sellerops-backend/internal/orders"
	"github.com/selleropsapp/sellerops-backend/pkg/bling"
	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/metrics"
	"github.com/selleropsapp/sellerops-backend/pkg/outbox"
)

type blingClient interface {
	Configured() bool
	UpdateOrderStatus(ctx context.Context, blingOrderID, situacao string) error
}

// ConsumerParams groups dependencies for the Bling notifier consumer.
type ConsumerParams struct {
	Logger  *logger.Logger
	Orders  orders.Repository
	Bling   blingClient
	Metrics *metrics.SyncMetrics
}

// Consumer reacts to order.status_changed events by pushing the new status to
// Bling. A failed push leaves a passive marker on the order and is never
// retried from here.
type Consumer struct {
	logg    *logger.Logger
	orders  orders.Repository
	bling   blingClient
	metrics *metrics.SyncMetrics
}

// NewConsumer builds the notifier consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository is required")
	}
	if params.Bling == nil {
		return nil, errors.New("bling client is required")
	}
	return &Consumer{
		logg:    params.Logger,
		orders:  params.Orders,
		bling:   params.Bling,
		metrics: params.Metrics,
	}, nil
}

// Process handles one outbox envelope. A returned error asks the transport to
// redeliver; Bling failures are absorbed here on purpose and never returned.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.EventOrderStatusChanged {
		return nil
	}

	var data outbox.OrderStatusChangedData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		c.logg.Error(logCtx, "undecodable status change payload; dropping", err)
		return nil
	}
	logCtx = c.logg.WithOrderID(logCtx, data.OrderID)

	if !shouldNotify(data.FromStatus, data.ToStatus) {
		return nil
	}

	order, err := c.orders.FindByID(logCtx, data.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", data.OrderID, err)
	}
	if order == nil {
		c.logg.Warn(logCtx, "status change refers to unknown order; dropping")
		return nil
	}

	// Prefer the Bling-side id when the order carries one; the marketplace
	// order id doubles as the Bling reference otherwise.
	blingOrderID := order.ID
	if order.BlingID != nil && *order.BlingID != "" {
		blingOrderID = *order.BlingID
	}

	situacao := MapBlingStatus(enums.OrderStatus(data.ToStatus))
	if err := c.bling.UpdateOrderStatus(logCtx, blingOrderID, situacao); err != nil {
		if errors.Is(err, bling.ErrNotConfigured) {
			c.countNotify("skipped")
			c.logg.Warn(logCtx, "bling not configured; skipping status push")
			return nil
		}
		c.countNotify("failure")
		c.logg.Error(logCtx, "bling status push failed; leaving marker", err)
		if markErr := c.orders.SetBlingSyncError(logCtx, order.ID, err.Error()); markErr != nil {
			return fmt.Errorf("record bling failure on order %s: %w", order.ID, markErr)
		}
		return nil
	}

	c.countNotify("success")
	c.logg.Info(logCtx, "bling order status updated")
	return nil
}

// shouldNotify limits pushes to a pending order becoming actionable. Every
// other transition either originated in Bling already or is pure bookkeeping.
func shouldNotify(from, to string) bool {
	if from != enums.OrderStatusPending.String() {
		return false
	}
	return to == enums.OrderStatusReadyToShip.String() || to == enums.OrderStatusShipped.String()
}

func (c *Consumer) countNotify(outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.IncBlingNotify(outcome)
}
