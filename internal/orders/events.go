package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	TotalCents int    `json:"total_cents"`
	SubOrders  int    `json:"sub_orders"`
	Paid       bool   `json:"paid"`
}

type OrderStatusChangedPayload struct {
	OrderID    string `json:"order_id"`
	SubOrderID string `json:"sub_order_id,omitempty"` // empty on direct parent writes
	UserID     string `json:"user_id"`
	Status     Status `json:"status"`
}
