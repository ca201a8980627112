package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event envelope published to NATS.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	UserID        int64           `json:"user_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// OrderEvent is the payload for evt.order.* events.
type OrderEvent struct {
	Status    string       `json:"status"` // "submitted" | "cancelled"
	Order     OrderSummary `json:"order"`
	Timestamp time.Time    `json:"timestamp"`
}
