package enums

import "fmt"

// OutboxEventType names the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderSynced        OutboxEventType = "order.synced"
)

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	switch OutboxEventType(value) {
	case EventOrderStatusChanged:
		return EventOrderStatusChanged, nil
	case EventOrderSynced:
		return EventOrderSynced, nil
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)
