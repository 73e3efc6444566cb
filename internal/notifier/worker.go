package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/selleropsapp/sellerops-backend/pkg/enums"
	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/outbox"
)

// Handler processes a decoded outbox envelope.
type Handler interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Worker pumps order events from a Pub/Sub subscription into a Handler.
// Undecodable messages are acked and dropped; only handler errors nack.
type Worker struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	logg         *logger.Logger
}

// NewWorker builds a notifier worker bound to a subscription.
func NewWorker(subscription *gcppubsub.Subscriber, handler Handler, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("subscription is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{
		subscription: subscription,
		handler:      handler,
		logg:         logg,
	}, nil
}

// Run consumes messages until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.process(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process returns true when the message should be redelivered.
func (w *Worker) process(ctx context.Context, msg *gcppubsub.Message) bool {
	logCtx := w.logg.WithField(ctx, "message_id", msg.ID)

	eventTypeStr := strings.TrimSpace(msg.Attributes["event_type"])
	eventType, err := enums.ParseOutboxEventType(eventTypeStr)
	if err != nil {
		w.logg.Warn(w.logg.WithField(logCtx, "event_type", eventTypeStr), "unknown event type; dropping message")
		return false
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		w.logg.Error(logCtx, "undecodable event envelope; dropping message", err)
		return false
	}

	if err := w.handler.Process(logCtx, eventType, envelope); err != nil {
		w.logg.Error(logCtx, "event handler failed", err)
		return true
	}
	return false
}
