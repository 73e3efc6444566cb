package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies who produced the event. System-produced events (cron
// sync, workers) leave UserID empty and set Source instead.
type ActorRef struct {
	UserID string `json:"userId,omitempty"`
	Source string `json:"source,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// OrderStatusChangedData is the payload for order.status_changed events.
type OrderStatusChangedData struct {
	OrderID    string `json:"orderId"`
	MLOrderID  int64  `json:"mlOrderId"`
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
}

// OrderSyncedData is the payload for order.synced events.
type OrderSyncedData struct {
	OrderID   string `json:"orderId"`
	MLOrderID int64  `json:"mlOrderId"`
	Status    string `json:"status"`
	IsNew     bool   `json:"isNew"`
}
